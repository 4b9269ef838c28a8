// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package binder

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/semantic/services/semantic/ast"
	"github.com/AleutianAI/semantic/services/semantic/config"
	"github.com/AleutianAI/semantic/services/semantic/resolve"
)

type source struct {
	path string
	code string
}

func parseUnits(t *testing.T, files ...source) []*ast.CompilationUnit {
	t.Helper()
	parser := ast.NewJavaParser()
	units := make([]*ast.CompilationUnit, 0, len(files))
	for _, f := range files {
		unit, err := parser.Parse(context.Background(), []byte(f.code), f.path)
		if err != nil {
			t.Fatalf("parse %s: %v", f.path, err)
		}
		if len(unit.Errors) > 0 {
			t.Fatalf("syntax errors in %s: %v", f.path, unit.Errors)
		}
		units = append(units, unit)
	}
	return units
}

func builtinUnits(t *testing.T) []*ast.CompilationUnit {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.GetAnalysisConfig(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	units, err := ParseBuiltins(ctx, ast.NewJavaParser(), cfg.Builtins, nil)
	if err != nil {
		t.Fatalf("builtins: %v", err)
	}
	return units
}

func bindJava(t *testing.T, files ...source) *Result {
	t.Helper()
	res, err := NewBinder().Bind(context.Background(), builtinUnits(t), parseUnits(t, files...))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return res
}

func mustClass(t *testing.T, res *Result, fqn string) *resolve.Symbol {
	t.Helper()
	info, ok := res.Lookup(fqn)
	if !ok {
		t.Fatalf("class %s not bound", fqn)
	}
	return info.Symbol
}

func mustMethod(t *testing.T, cls *resolve.Symbol, name string, arity int) *resolve.Symbol {
	t.Helper()
	for _, m := range cls.Members().Lookup(name) {
		if m.IsMethodSymbol() && len(m.ParameterTypes()) == arity {
			return m
		}
	}
	t.Fatalf("%s has no method %s/%d", cls.FullyQualifiedName(), name, arity)
	return nil
}

func mustField(t *testing.T, cls *resolve.Symbol, name string) *resolve.Symbol {
	t.Helper()
	for _, v := range cls.Members().Lookup(name) {
		if v.IsVariableSymbol() {
			return v
		}
	}
	t.Fatalf("%s has no field %s", cls.FullyQualifiedName(), name)
	return nil
}

func TestBind_ClassesCompleteLazily(t *testing.T) {
	res := bindJava(t, source{"p/Outer.java", `
package p;
public class Outer {
    static class Inner {}
}
class Other {}
`})

	var names []string
	for _, c := range res.Classes {
		names = append(names, c.FQN())
	}
	want := []string{"p.Outer", "p.Outer.Inner", "p.Other"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("class %d: expected %s, got %s", i, want[i], names[i])
		}
	}

	outer := mustClass(t, res, "p.Outer")
	if outer.IsCompleted() {
		t.Fatal("class completed before any query")
	}
	if !outer.IsPublic() {
		t.Error("expected Outer to be public")
	}
	if !outer.IsCompleted() {
		t.Error("modifier query did not complete the class")
	}
	if res.Stats.Classes != 3 || res.Stats.Units != 1 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
}

func TestBind_Hierarchy(t *testing.T) {
	res := bindJava(t, source{"p/B.java", `
package p;
class A {}
interface I extends Runnable {}
class B extends A implements I {}
`})

	b := mustClass(t, res, "p.B")
	if got := b.Superclass().String(); got != "p.A" {
		t.Errorf("expected superclass p.A, got %s", got)
	}
	if ifaces := b.Interfaces(); len(ifaces) != 1 || ifaces[0].String() != "p.I" {
		t.Errorf("unexpected interfaces %v", ifaces)
	}

	a := mustClass(t, res, "p.A")
	if got := a.Superclass().String(); got != ObjectFQN {
		t.Errorf("expected implicit Object superclass, got %s", got)
	}
	if mustClass(t, res, "p.I").Superclass() != nil {
		t.Error("interfaces have no superclass")
	}
	if mustClass(t, res, ObjectFQN).Superclass() != nil {
		t.Error("Object has no superclass")
	}

	got := map[string]bool{}
	for _, st := range b.SuperTypes() {
		got[st.String()] = true
	}
	for _, want := range []string{"p.A", "p.I", "java.lang.Runnable", ObjectFQN} {
		if !got[want] {
			t.Errorf("SuperTypes missing %s (got %v)", want, got)
		}
	}
	if len(got) != 4 {
		t.Errorf("expected 4 supertypes, got %v", got)
	}
}

func TestBind_IsOverridden(t *testing.T) {
	tests := []struct {
		name   string
		files  []source
		class  string
		method string
		arity  int
		want   resolve.TriState
	}{
		{
			name: "toString overrides Object",
			files: []source{{"p/A.java", `package p;
class A { public String toString() { return ""; } }`}},
			class: "p.A", method: "toString", want: resolve.TriTrue,
		},
		{
			name: "equals overload does not override",
			files: []source{{"p/A.java", `package p;
class A { public boolean equals(A other) { return false; } }`}},
			class: "p.A", method: "equals", arity: 1, want: resolve.TriFalse,
		},
		{
			name: "interface method implemented",
			files: []source{{"p/Task.java", `package p;
class Task implements Runnable { public void run() {} }`}},
			class: "p.Task", method: "run", want: resolve.TriTrue,
		},
		{
			name: "new method",
			files: []source{{"p/A.java", `package p;
class A { void fresh() {} }`}},
			class: "p.A", method: "fresh", want: resolve.TriFalse,
		},
		{
			name: "generic superclass argument",
			files: []source{{"p/Box.java", `package p;
class Box<T> { void put(T item) {} }
class IntBox extends Box<Integer> { void put(Integer item) {} }`}},
			class: "p.IntBox", method: "put", arity: 1, want: resolve.TriTrue,
		},
		{
			name: "raw superclass erases to bound",
			files: []source{{"p/Box.java", `package p;
class Box<T> { void put(T item) {} }
class RawBox extends Box { void put(Object item) {} }`}},
			class: "p.RawBox", method: "put", arity: 1, want: resolve.TriTrue,
		},
		{
			name: "generic interface argument",
			files: []source{{"p/Money.java", `package p;
class Money implements Comparable<Money> { public int compareTo(Money o) { return 0; } }`}},
			class: "p.Money", method: "compareTo", arity: 1, want: resolve.TriTrue,
		},
		{
			name: "unknown superclass",
			files: []source{{"p/C.java", `package p;
class C extends missing.Base { void m() {} }`}},
			class: "p.C", method: "m", want: resolve.TriUnknown,
		},
		{
			name: "unknown parameter type",
			files: []source{{"p/D.java", `package p;
class D { public boolean equals(Missing other) { return false; } }`}},
			class: "p.D", method: "equals", arity: 1, want: resolve.TriUnknown,
		},
		{
			name: "private superclass method",
			files: []source{{"p/A.java", `package p;
class A { private void m() {} }
class B extends A { void m() {} }`}},
			class: "p.B", method: "m", want: resolve.TriFalse,
		},
		{
			name: "package-private across packages",
			files: []source{
				{"p1/A.java", `package p1;
public class A { void m() {} }`},
				{"p2/B.java", `package p2;
import p1.A;
class B extends A { void m() {} }`},
			},
			class: "p2.B", method: "m", want: resolve.TriFalse,
		},
		{
			name: "package-private in same package",
			files: []source{
				{"p/A.java", `package p;
public class A { void m() {} }`},
				{"p/B.java", `package p;
class B extends A { void m() {} }`},
			},
			class: "p.B", method: "m", want: resolve.TriTrue,
		},
		{
			name: "array overrides varargs",
			files: []source{{"p/V.java", `package p;
class V { void f(String... names) {} }
class W extends V { void f(String[] names) {} }`}},
			class: "p.W", method: "f", arity: 1, want: resolve.TriTrue,
		},
		{
			name: "enum overrides Enum.toString",
			files: []source{{"p/Color.java", `package p;
enum Color { RED; public String toString() { return "red"; } }`}},
			class: "p.Color", method: "toString", want: resolve.TriTrue,
		},
		{
			name: "record overrides Record.hashCode",
			files: []source{{"p/Point.java", `package p;
record Point(int x, int y) { public int hashCode() { return x; } }`}},
			class: "p.Point", method: "hashCode", want: resolve.TriTrue,
		},
		{
			name: "platform interface through import",
			files: []source{{"p/Names.java", `package p;
import java.util.Iterator;
class Names implements Iterator<String> {
    public boolean hasNext() { return false; }
    public String next() { return null; }
}`}},
			class: "p.Names", method: "next", want: resolve.TriTrue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := bindJava(t, tt.files...)
			m := mustMethod(t, mustClass(t, res, tt.class), tt.method, tt.arity)
			if got := m.IsOverridden(); got != tt.want {
				t.Errorf("IsOverridden() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBind_Enum(t *testing.T) {
	res := bindJava(t, source{"p/Color.java", `
package p;
public enum Color {
    RED,
    @Deprecated GREEN;
}
`})

	color := mustClass(t, res, "p.Color")
	if !color.IsEnum() || !color.IsFinal() {
		t.Errorf("unexpected enum flags %b", color.Flags())
	}
	super := color.Superclass()
	if !super.IsTagged(resolve.TagParametrized) || super.String() != "java.lang.Enum<p.Color>" {
		t.Errorf("expected Enum<p.Color>, got %s", super)
	}

	red := mustField(t, color, "RED")
	if !red.IsStatic() || !red.IsFinal() || !red.IsPublic() || red.Type() != color.Type() {
		t.Errorf("unexpected constant %v flags %b", red, red.Flags())
	}
	if !mustField(t, color, "GREEN").IsDeprecated() {
		t.Error("expected GREEN to be deprecated")
	}

	values := mustMethod(t, color, "values", 0)
	if got := values.Type().ResultType().String(); got != "p.Color[]" || !values.IsStatic() {
		t.Errorf("unexpected values() %s", got)
	}
	mustMethod(t, color, "valueOf", 1)
	if ctor := mustMethod(t, color, ConstructorName, 0); !ctor.IsPrivate() {
		t.Error("implicit enum constructor must be private")
	}
}

func TestBind_Record(t *testing.T) {
	res := bindJava(t, source{"p/Point.java", `
package p;
public record Point(int x, int y) {
    public int x() { return x; }
}
`})

	point := mustClass(t, res, "p.Point")
	if !point.IsFinal() || point.Superclass().String() != "java.lang.Record" {
		t.Errorf("unexpected record header: final=%v super=%s", point.IsFinal(), point.Superclass())
	}
	if n := len(point.Members().Lookup("x")); n != 2 {
		t.Errorf("expected field and declared accessor for x, got %d members", n)
	}
	y := mustMethod(t, point, "y", 0)
	if y.Type().ResultType().String() != "int" {
		t.Errorf("unexpected accessor result %s", y.Type().ResultType())
	}
	if !mustField(t, point, "y").IsPrivate() {
		t.Error("component field must be private")
	}
	mustMethod(t, point, ConstructorName, 2)
}

func TestBind_InterfaceImplicitModifiers(t *testing.T) {
	res := bindJava(t, source{"p/Shape.java", `
package p;
interface Shape {
    int SIDES = 0;
    double area();
    default String label() { return ""; }
    static Shape unit() { return null; }
    private void helper() {}
    class Impl {}
}
`})

	shape := mustClass(t, res, "p.Shape")
	if !shape.IsInterface() || !shape.IsAbstract() {
		t.Error("interface flags not set")
	}

	tests := []struct {
		name     string
		public   bool
		abstract bool
		static   bool
	}{
		{"area", true, true, false},
		{"label", true, false, false},
		{"unit", true, false, true},
		{"helper", false, false, false},
	}
	for _, tt := range tests {
		m := mustMethod(t, shape, tt.name, 0)
		if m.IsPublic() != tt.public || m.IsAbstract() != tt.abstract || m.IsStatic() != tt.static {
			t.Errorf("%s: got public=%v abstract=%v static=%v", tt.name, m.IsPublic(), m.IsAbstract(), m.IsStatic())
		}
	}

	sides := mustField(t, shape, "SIDES")
	if !sides.IsPublic() || !sides.IsStatic() || !sides.IsFinal() {
		t.Errorf("interface field flags %b", sides.Flags())
	}
	impl := mustClass(t, res, "p.Shape.Impl")
	if !impl.IsPublic() || !impl.IsStatic() {
		t.Errorf("member class of interface flags %b", impl.Flags())
	}
	if len(shape.Members().Lookup(ConstructorName)) != 0 {
		t.Error("interfaces get no default constructor")
	}
}

func TestBind_TypeParameters(t *testing.T) {
	res := bindJava(t, source{"p/Node.java", `
package p;
class Node<T extends Comparable<T>> {
    Node<T> next;
    <R> R map(T value) { return null; }
}
`})

	node := mustClass(t, res, "p.Node")
	vars := node.TypeVariableTypes()
	if len(vars) != 1 {
		t.Fatalf("expected 1 type variable, got %d", len(vars))
	}
	tv := vars[0]
	if bounds := tv.Bounds(); len(bounds) != 1 || bounds[0].String() != "java.lang.Comparable<T>" {
		t.Errorf("unexpected bounds %v", bounds)
	}
	if got := tv.Erasure().String(); got != "java.lang.Comparable" {
		t.Errorf("expected erasure to raw Comparable, got %s", got)
	}
	if len(node.TypeParameters().Lookup("T")) != 1 {
		t.Error("T missing from type-parameter scope")
	}

	next := mustField(t, node, "next")
	if !next.Type().IsTagged(resolve.TagParametrized) || next.Type().String() != "p.Node<T>" {
		t.Errorf("unexpected field type %s", next.Type())
	}

	m := mustMethod(t, node, "map", 1)
	mvars := m.TypeVariableTypes()
	if len(mvars) != 1 || m.Type().ResultType() != mvars[0] {
		t.Errorf("method type variable not used as result: %v", m.Type())
	}
	if m.ParameterTypes()[0] != tv {
		t.Errorf("parameter should be the class type variable, got %s", m.ParameterTypes()[0])
	}
	if got := mvars[0].Erasure().String(); got != ObjectFQN {
		t.Errorf("unbounded variable should erase to Object, got %s", got)
	}
}

func TestBind_NameResolution(t *testing.T) {
	res := bindJava(t,
		source{"a/Util.java", `package a;
public class Util {
    public static class Helper {}
}`},
		source{"b/Local.java", `package b;
class Local {}`},
		source{"b/Client.java", `package b;
import a.Util;
import java.util.*;
class Client implements Map<String, Integer> {
    Util util;
    Util.Helper helper;
    a.Util.Helper qualified;
    Local local;
    List<String> list;
    Entry<String, Integer> entry;
    int[] counts;
    String text;
}`},
	)

	client := mustClass(t, res, "b.Client")
	tests := []struct {
		field string
		want  string
	}{
		{"util", "a.Util"},
		{"helper", "a.Util.Helper"},
		{"qualified", "a.Util.Helper"},
		{"local", "b.Local"},
		{"list", "java.util.List<java.lang.String>"},
		{"entry", "java.util.Map.Entry<java.lang.String,java.lang.Integer>"},
		{"counts", "int[]"},
		{"text", "java.lang.String"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := mustField(t, client, tt.field).Type().String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
	if u := res.Unresolved(); len(u) != 0 {
		t.Errorf("expected every reference to resolve, got %v", u)
	}
}

func TestBind_AmbiguousOnDemandImport(t *testing.T) {
	res := bindJava(t,
		source{"a/X.java", "package a; public class X {}"},
		source{"b/X.java", "package b; public class X {}"},
		source{"c/Use.java", `package c;
import a.*;
import b.*;
class Use { X x; }`},
	)

	use := mustClass(t, res, "c.Use")
	if !mustField(t, use, "x").Type().IsUnknown() {
		t.Error("ambiguous on-demand import should resolve to Unknown")
	}
}

func TestBind_UnresolvedReferences(t *testing.T) {
	res := bindJava(t, source{"p/Svc.java", `package p;
class Svc {
    Missing field;
    void run(Gone[] items) {}
}`})

	if n := len(res.Unresolved()); n != 0 {
		t.Fatalf("nothing should resolve before completion, got %d", n)
	}
	res.CompleteAll()

	got := map[string]string{}
	for _, u := range res.Unresolved() {
		got[u.Name] = u.Context
		if u.FilePath != "p/Svc.java" {
			t.Errorf("unexpected file %s", u.FilePath)
		}
	}
	if got["Missing"] != "p.Svc#field" || got["Gone"] != "p.Svc#run" {
		t.Errorf("unexpected unresolved references %v", got)
	}

	svc := mustClass(t, res, "p.Svc")
	if !mustMethod(t, svc, "run", 1).ParameterTypes()[0].IsUnknown() {
		t.Error("array of unresolved type should be unknown")
	}
}

func TestBind_ConstructorsAndAnnotations(t *testing.T) {
	res := bindJava(t, source{"p/Legacy.java", `package p;
@Deprecated
public class Legacy {
    @Override
    public String toString() { return ""; }
}
class Explicit {
    Explicit(int size) {}
}`})

	legacy := mustClass(t, res, "p.Legacy")
	if !legacy.IsDeprecated() || !legacy.Metadata().IsAnnotatedWith("java.lang.Deprecated") {
		t.Error("expected deprecated class with annotation metadata")
	}
	if ctor := mustMethod(t, legacy, ConstructorName, 0); !ctor.IsPublic() {
		t.Error("default constructor should take the class visibility")
	}
	if !mustMethod(t, legacy, "toString", 0).Metadata().IsAnnotatedWith("Override") {
		t.Error("method annotation not recorded")
	}

	explicit := mustClass(t, res, "p.Explicit")
	ctors := explicit.Members().Lookup(ConstructorName)
	if len(ctors) != 1 || len(ctors[0].ParameterTypes()) != 1 {
		t.Errorf("expected only the declared constructor, got %v", ctors)
	}
}

func TestBind_DuplicateType(t *testing.T) {
	res := bindJava(t,
		source{"p/A.java", "package p; class A {}"},
		source{"q/A.java", "package p; class A { void m() {} }"},
	)

	if len(res.Classes) != 1 || res.Classes[0].FilePath != "p/A.java" {
		t.Fatalf("expected first declaration to win, got %v", res.Classes)
	}
	if len(res.FileErrors) != 1 || res.FileErrors[0].FilePath != "q/A.java" {
		t.Errorf("expected one file error for q/A.java, got %v", res.FileErrors)
	}
}

func TestBind_Errors(t *testing.T) {
	b := NewBinder()
	if _, err := b.Bind(context.Background(), nil, []*ast.CompilationUnit{nil}); !errors.Is(err, ErrNilUnit) {
		t.Errorf("expected ErrNilUnit, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	units := parseUnits(t, source{"p/A.java", "package p; class A {}"})
	if _, err := b.Bind(ctx, nil, units); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBind_WithoutBuiltins(t *testing.T) {
	units := parseUnits(t, source{"p/A.java", `package p;
class A { public String toString() { return ""; } }`})
	res, err := NewBinder().Bind(context.Background(), nil, units)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	a := mustClass(t, res, "p.A")
	if a.Superclass() != nil {
		t.Errorf("without platform stubs there is no Object, got %s", a.Superclass())
	}
	if got := mustMethod(t, a, "toString", 0).IsOverridden(); got != resolve.TriFalse {
		t.Errorf("expected false without ancestors, got %s", got)
	}
}
