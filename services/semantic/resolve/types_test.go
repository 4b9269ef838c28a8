// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import "testing"

func TestErasure(t *testing.T) {
	f := newFixture()
	util := f.table.Package("java.util")
	list := f.iface(util, "List")
	elem := f.typeVar(list, "E")
	comparable := f.iface(f.lang, "Comparable")
	f.typeVar(comparable, "T")
	str := f.class(f.lang, FlagPublic|FlagFinal, "String", nil)

	boxCls := f.class(f.table.Package("p"), 0, "Box", nil)
	unbounded := f.table.NewTypeVariable("U", boxCls).Type()
	bounded := f.table.NewTypeVariable("C", boxCls).Type()
	cmpOfC := NewParametrizedType(comparable, NewSubstitution())
	cmpOfC.Substitution().Put(comparable.TypeVariableTypes()[0], bounded)
	bounded.SetBounds([]*Type{cmpOfC})

	listOfString := NewParametrizedType(list, NewSubstitution())
	listOfString.Substitution().Put(elem, str.Type())
	intType, _ := f.table.Primitive("int")

	tests := []struct {
		name string
		in   *Type
		want *Type
	}{
		{name: "class is its own erasure", in: str.Type(), want: str.Type()},
		{name: "primitive", in: intType, want: intType},
		{name: "parametrized erases to raw", in: listOfString, want: list.Type()},
		{name: "type variable erases to bound", in: elem, want: f.object.Type()},
		{name: "recursive bound erases to raw bound", in: bounded, want: comparable.Type()},
		{name: "unbounded type variable", in: unbounded, want: unbounded},
		{name: "unknown", in: f.table.UnknownType(), want: f.table.UnknownType()},
		{name: "array of type variable", in: NewArrayType(elem), want: NewArrayType(f.object.Type())},
		{name: "array of parametrized", in: NewArrayType(listOfString), want: NewArrayType(list.Type())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Erasure(); !got.Equal(tt.want) {
				t.Errorf("Erasure(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestErasure_ArrayOfClassIsIdentity(t *testing.T) {
	f := newFixture()
	arr := NewArrayType(f.object.Type())
	if arr.Erasure() != arr {
		t.Error("an already erased array should be returned unchanged")
	}
}

func TestEqual(t *testing.T) {
	f := newFixture()
	util := f.table.Package("java.util")
	list := f.iface(util, "List")
	elem := f.typeVar(list, "E")
	str := f.class(f.lang, FlagPublic, "String", nil)
	integer := f.class(f.lang, FlagPublic, "Integer", nil)
	intType, _ := f.table.Primitive("int")

	listOf := func(arg *Type) *Type {
		subst := NewSubstitution()
		subst.Put(elem, arg)
		return NewParametrizedType(list, subst)
	}

	tests := []struct {
		name string
		a, b *Type
		want bool
	}{
		{name: "same class", a: str.Type(), b: str.Type(), want: true},
		{name: "different classes", a: str.Type(), b: integer.Type(), want: false},
		{name: "arrays of same element", a: NewArrayType(str.Type()), b: NewArrayType(str.Type()), want: true},
		{name: "array vs element", a: NewArrayType(str.Type()), b: str.Type(), want: false},
		{name: "same instantiation", a: listOf(str.Type()), b: listOf(str.Type()), want: true},
		{name: "different instantiation", a: listOf(str.Type()), b: listOf(integer.Type()), want: false},
		{name: "raw vs parametrized", a: list.Type(), b: listOf(str.Type()), want: false},
		{
			name: "method types ignore thrown",
			a:    NewMethodType([]*Type{intType}, str.Type(), nil),
			b:    NewMethodType([]*Type{intType}, str.Type(), []*Type{integer.Type()}),
			want: true,
		},
		{
			name: "method types differ by arity",
			a:    NewMethodType([]*Type{intType}, str.Type(), nil),
			b:    NewMethodType(nil, str.Type(), nil),
			want: false,
		},
		{name: "nil vs type", a: nil, b: str.Type(), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubstitution(t *testing.T) {
	f := newFixture()
	box := f.class(f.table.Package("p"), 0, "Box", nil)
	tv := f.typeVar(box, "T")
	other := f.typeVar(box, "V")
	str := f.class(f.lang, FlagPublic, "String", nil)
	integer := f.class(f.lang, FlagPublic, "Integer", nil)

	subst := NewSubstitution()
	if _, ok := subst.Lookup(tv); ok {
		t.Fatal("empty substitution should not find anything")
	}

	subst.Put(tv, str.Type())
	subst.Put(tv, integer.Type())
	if subst.Len() != 1 {
		t.Errorf("Len() = %d after re-Put, want 1", subst.Len())
	}
	got, ok := subst.Lookup(tv)
	if !ok || got != integer.Type() {
		t.Errorf("Lookup(T) = %v, %v; want Integer", got, ok)
	}
	if _, ok := subst.Lookup(other); ok {
		t.Error("unmapped type variable should report not found")
	}

	var nilSubst *Substitution
	if _, ok := nilSubst.Lookup(tv); ok || nilSubst.Len() != 0 {
		t.Error("nil substitution should be empty")
	}
}

func TestIsUnknown(t *testing.T) {
	f := newFixture()
	unknown := f.table.UnknownType()

	if !unknown.IsUnknown() || !unknown.IsClass() {
		t.Error("Unknown is a class-category unknown type")
	}
	if !NewArrayType(NewArrayType(unknown)).IsUnknown() {
		t.Error("array of Unknown should be unknown")
	}
	if f.object.Type().IsUnknown() {
		t.Error("Object is known")
	}
	var nilType *Type
	if nilType.IsUnknown() || nilType.IsClass() || nilType.IsTagged(TagClass) {
		t.Error("nil type should report nothing")
	}
}

func TestTypeString(t *testing.T) {
	f := newFixture()
	util := f.table.Package("java.util")
	mapCls := f.iface(util, "Map")
	k := f.typeVar(mapCls, "K")
	v := f.typeVar(mapCls, "V")
	str := f.class(f.lang, FlagPublic, "String", nil)
	intType, _ := f.table.Primitive("int")

	subst := NewSubstitution()
	subst.Put(k, str.Type())
	subst.Put(v, NewArrayType(intType))

	tests := []struct {
		in   *Type
		want string
	}{
		{in: str.Type(), want: "java.lang.String"},
		{in: k, want: "K"},
		{in: NewParametrizedType(mapCls, subst), want: "java.util.Map<java.lang.String,int[]>"},
		{in: NewMethodType([]*Type{intType, str.Type()}, f.voidType(), nil), want: "(int,java.lang.String)void"},
		{in: f.table.UnknownType(), want: "!unknown!"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
