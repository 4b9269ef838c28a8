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

import (
	"errors"
	"testing"
)

// fixture hand-builds symbol graphs the way the binder would, without
// completers unless a test attaches one.
type fixture struct {
	table  *Table
	lang   *Symbol
	object *Symbol
}

func newFixture() *fixture {
	tbl := NewTable()
	f := &fixture{table: tbl, lang: tbl.Package("java.lang")}
	f.object = f.class(f.lang, FlagPublic, "Object", nil)
	return f
}

// class creates a class in owner with an empty member scope. A nil super on
// a non-Object class defaults to java.lang.Object.
func (f *fixture) class(owner *Symbol, flags Flags, name string, super *Type, ifaces ...*Type) *Symbol {
	sym := f.table.NewClass(flags, name, owner)
	sym.SetMembers(NewScope(sym))
	if super == nil && f.object != nil && flags&FlagInterface == 0 {
		super = f.object.Type()
	}
	sym.Type().SetSupertype(super)
	sym.Type().SetInterfaces(ifaces)
	if members := owner.Members(); members != nil {
		members.Enter(sym)
	}
	return sym
}

func (f *fixture) iface(owner *Symbol, name string, ifaces ...*Type) *Symbol {
	return f.class(owner, FlagPublic|FlagInterface|FlagAbstract, name, nil, ifaces...)
}

func (f *fixture) method(owner *Symbol, flags Flags, name string, result *Type, params ...*Type) *Symbol {
	m := f.table.NewMethod(flags, name, owner, NewMethodType(params, result, nil))
	scope := NewOrderedScope(m)
	for i, p := range params {
		scope.Enter(f.table.NewVariable(0, string(rune('a'+i)), p, m))
	}
	m.SetParameters(scope)
	owner.Members().Enter(m)
	return m
}

// typeVar declares a type parameter on owner bounded by Object.
func (f *fixture) typeVar(owner *Symbol, name string) *Type {
	tv := f.table.NewTypeVariable(name, owner)
	tv.Type().SetBounds([]*Type{f.object.Type()})
	if owner.TypeParameters() == nil {
		owner.SetTypeParameters(NewScope(owner))
	}
	owner.TypeParameters().Enter(tv)
	owner.AddTypeParameter(tv.Type())
	return tv.Type()
}

func (f *fixture) voidType() *Type {
	v, _ := f.table.Primitive("void")
	return v
}

// expectInvariant runs fn and fails unless it panics with *InvariantError.
func expectInvariant(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected invariant panic, got none")
		}
		err, ok := r.(error)
		var inv *InvariantError
		if !ok || !errors.As(err, &inv) {
			t.Fatalf("expected *InvariantError, got %T: %v", r, r)
		}
	}()
	fn()
}
