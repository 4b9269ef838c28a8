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
	"github.com/AleutianAI/semantic/services/semantic/ast"
	"github.com/AleutianAI/semantic/services/semantic/resolve"
)

// completeClass is the completer body of every class symbol.
//
// Description:
//
//	Steps run in a fixed order so that re-entrant queries see a usable
//	partial state: flags and the member scope first, then all type
//	variables before any bound is resolved, then supertypes, then members.
//	Method signatures are resolved here too, so a method symbol is never
//	observed without its type.
func (s *bindState) completeClass(c *ClassInfo) {
	sym := c.Symbol
	decl := c.Decl

	sym.AddFlags(classFlags(c))
	for _, a := range decl.Annotations {
		sym.Metadata().AddAnnotation(a)
	}
	members := resolve.NewScope(sym)
	sym.SetMembers(members)

	env := &nameEnv{class: c, context: c.FQN()}
	s.enterTypeParams(sym, decl.TypeParams, c.typeVars, env)

	sym.Type().SetSupertype(s.superclassOf(c, env))
	sym.Type().SetInterfaces(s.interfacesOf(c, env))
	c.hierarchyReady = true

	s.enterEnumConstants(c, members)
	s.enterRecordComponents(c, members, env)
	for _, f := range decl.Fields {
		s.enterField(c, f, members, env)
	}
	for _, m := range decl.Methods {
		s.enterMethod(c, m, members)
	}
	s.enterImplicitMembers(c, members)

	for _, n := range decl.Nested {
		if child, ok := c.nested[n.Name]; ok && child.Decl == n {
			members.Enter(child.Symbol)
		}
	}
}

// classFlags derives the modifier mask of a type, implicit modifiers
// included.
func classFlags(c *ClassInfo) resolve.Flags {
	decl := c.Decl
	f := resolve.FlagsFromModifiers(decl.Modifiers)
	switch decl.Kind {
	case ast.DeclInterface:
		f |= resolve.FlagInterface | resolve.FlagAbstract
	case ast.DeclAnnotation:
		f |= resolve.FlagInterface | resolve.FlagAnnotation | resolve.FlagAbstract
	case ast.DeclEnum:
		f |= resolve.FlagEnum
		if !hasAbstractMethod(decl) {
			f |= resolve.FlagFinal
		}
	case ast.DeclRecord:
		f |= resolve.FlagRecord | resolve.FlagFinal
	}
	if c.outer != nil {
		if decl.Kind != ast.DeclClass {
			f |= resolve.FlagStatic
		}
		if k := c.outer.Decl.Kind; k == ast.DeclInterface || k == ast.DeclAnnotation {
			f |= resolve.FlagPublic | resolve.FlagStatic
		}
	}
	if isDeprecated(decl.Annotations) {
		f |= resolve.FlagDeprecated
	}
	return f
}

func hasAbstractMethod(decl *ast.TypeDecl) bool {
	for _, m := range decl.Methods {
		if m.HasModifier("abstract") {
			return true
		}
	}
	return false
}

func isDeprecated(annotations []string) bool {
	for _, a := range annotations {
		if a == "Deprecated" || a == "java.lang.Deprecated" {
			return true
		}
	}
	return false
}

// enterTypeParams creates every type variable of owner, then resolves the
// bounds. Creating all variables first lets a bound mention a later one
// (<K extends Comparable<V>, V>) or its own variable (<E extends Enum<E>>).
func (s *bindState) enterTypeParams(owner *resolve.Symbol, params []ast.TypeParam, into map[string]*resolve.Type, env *nameEnv) {
	scope := resolve.NewScope(owner)
	vars := make([]*resolve.Symbol, len(params))
	for i, p := range params {
		tv := s.table.NewTypeVariable(p.Name, owner)
		scope.Enter(tv)
		owner.AddTypeParameter(tv.Type())
		into[p.Name] = tv.Type()
		vars[i] = tv
	}
	owner.SetTypeParameters(scope)

	for i, p := range params {
		bounds := make([]*resolve.Type, 0, len(p.Bounds))
		for _, b := range p.Bounds {
			bounds = append(bounds, s.resolveTypeRef(b, env))
		}
		if len(bounds) == 0 {
			if obj := s.objectType(); obj != nil {
				bounds = append(bounds, obj)
			}
		}
		vars[i].Type().SetBounds(bounds)
	}
}

func (s *bindState) superclassOf(c *ClassInfo, env *nameEnv) *resolve.Type {
	decl := c.Decl
	switch decl.Kind {
	case ast.DeclInterface, ast.DeclAnnotation:
		return nil
	case ast.DeclEnum:
		return s.enumSupertype(c)
	case ast.DeclRecord:
		if t := s.classType(recordFQN); t != nil {
			return t
		}
		return s.objectType()
	}
	if decl.Superclass != nil {
		t := s.resolveTypeRef(decl.Superclass, env)
		if !t.IsClass() {
			return s.table.UnknownType()
		}
		return t
	}
	if c.FQN() == ObjectFQN {
		return nil
	}
	return s.objectType()
}

// enumSupertype returns Enum<Self>, falling back to the raw Enum type (or
// Object) when the platform stubs lack a generic Enum.
func (s *bindState) enumSupertype(c *ClassInfo) *resolve.Type {
	info, ok := s.classes[enumFQN]
	if !ok {
		return s.objectType()
	}
	vars := info.Symbol.TypeVariableTypes()
	if len(vars) != 1 {
		return info.Symbol.Type()
	}
	subst := resolve.NewSubstitution()
	subst.Put(vars[0], c.Symbol.Type())
	return resolve.NewParametrizedType(info.Symbol, subst)
}

func (s *bindState) interfacesOf(c *ClassInfo, env *nameEnv) []*resolve.Type {
	decl := c.Decl
	out := make([]*resolve.Type, 0, len(decl.Interfaces))
	for _, ref := range decl.Interfaces {
		t := s.resolveTypeRef(ref, env)
		if !t.IsClass() {
			t = s.table.UnknownType()
		}
		out = append(out, t)
	}
	return out
}

func (s *bindState) enterEnumConstants(c *ClassInfo, members *resolve.Scope) {
	const constantFlags = resolve.FlagPublic | resolve.FlagStatic | resolve.FlagFinal | resolve.FlagEnum
	for _, ec := range c.Decl.EnumConstants {
		flags := resolve.Flags(constantFlags)
		if isDeprecated(ec.Annotations) {
			flags |= resolve.FlagDeprecated
		}
		v := s.table.NewVariable(flags, ec.Name, c.Symbol.Type(), c.Symbol)
		for _, a := range ec.Annotations {
			v.Metadata().AddAnnotation(a)
		}
		members.Enter(v)
	}
}

// enterRecordComponents adds the private field and public accessor of each
// component, plus the canonical constructor when none is declared.
func (s *bindState) enterRecordComponents(c *ClassInfo, members *resolve.Scope, env *nameEnv) {
	decl := c.Decl
	if decl.Kind != ast.DeclRecord {
		return
	}
	types := make([]*resolve.Type, 0, len(decl.RecordComponents))
	for _, rc := range decl.RecordComponents {
		t := s.resolveTypeRef(rc.Type, env)
		types = append(types, t)
		members.Enter(s.table.NewVariable(resolve.FlagPrivate|resolve.FlagFinal, rc.Name, t, c.Symbol))
		if !declaresMethod(decl, rc.Name, 0) {
			m := s.table.NewMethod(resolve.FlagPublic, rc.Name, c.Symbol, resolve.NewMethodType(nil, t, nil))
			m.SetParameters(resolve.NewOrderedScope(m))
			members.Enter(m)
		}
	}
	if !declaresConstructor(decl, len(types)) {
		ctor := s.table.NewMethod(resolve.FlagPublic, ConstructorName, c.Symbol, nil)
		params := resolve.NewOrderedScope(ctor)
		for i, rc := range decl.RecordComponents {
			params.Enter(s.table.NewVariable(0, rc.Name, types[i], ctor))
		}
		ctor.SetParameters(params)
		ctor.SetMethodType(resolve.NewMethodType(types, s.voidType(), nil))
		members.Enter(ctor)
	}
}

func declaresMethod(decl *ast.TypeDecl, name string, arity int) bool {
	for _, m := range decl.Methods {
		if !m.Constructor && m.Name == name && len(m.Params) == arity {
			return true
		}
	}
	return false
}

func declaresConstructor(decl *ast.TypeDecl, arity int) bool {
	for _, m := range decl.Methods {
		if m.Constructor && (arity < 0 || len(m.Params) == arity) {
			return true
		}
	}
	return false
}

func (s *bindState) enterField(c *ClassInfo, f *ast.FieldDecl, members *resolve.Scope, env *nameEnv) {
	flags := resolve.FlagsFromModifiers(f.Modifiers)
	if c.Symbol.Flags().Has(resolve.FlagInterface) {
		flags |= resolve.FlagPublic | resolve.FlagStatic | resolve.FlagFinal
	}
	if isDeprecated(f.Annotations) {
		flags |= resolve.FlagDeprecated
	}
	env.context = c.FQN() + "#" + f.Name
	v := s.table.NewVariable(flags, f.Name, s.resolveTypeRef(f.Type, env), c.Symbol)
	for _, a := range f.Annotations {
		v.Metadata().AddAnnotation(a)
	}
	members.Enter(v)
}

// enterMethod creates a method symbol with its full signature.
func (s *bindState) enterMethod(c *ClassInfo, d *ast.MethodDecl, members *resolve.Scope) *resolve.Symbol {
	name := d.Name
	if d.Constructor {
		name = ConstructorName
	}
	flags := resolve.FlagsFromModifiers(d.Modifiers) | implicitMethodFlags(c, d)
	if d.IsVarArgs() {
		flags |= resolve.FlagVarArgs
	}
	if isDeprecated(d.Annotations) {
		flags |= resolve.FlagDeprecated
	}
	m := s.table.NewMethod(flags, name, c.Symbol, nil)

	env := &nameEnv{class: c, context: c.FQN() + "#" + name}
	if len(d.TypeParams) > 0 {
		env.methodVars = make(map[string]*resolve.Type, len(d.TypeParams))
		s.enterTypeParams(m, d.TypeParams, env.methodVars, env)
	}

	params := resolve.NewOrderedScope(m)
	args := make([]*resolve.Type, 0, len(d.Params))
	for _, p := range d.Params {
		t := s.resolveTypeRef(p.Type, env)
		params.Enter(s.table.NewVariable(resolve.FlagsFromModifiers(p.Modifiers), p.Name, t, m))
		args = append(args, t)
	}
	m.SetParameters(params)

	result := s.voidType()
	if !d.Constructor && d.Result != nil {
		result = s.resolveTypeRef(d.Result, env)
	}
	var thrown []*resolve.Type
	for _, t := range d.Throws {
		thrown = append(thrown, s.resolveTypeRef(t, env))
	}
	m.SetMethodType(resolve.NewMethodType(args, result, thrown))

	for _, a := range d.Annotations {
		m.Metadata().AddAnnotation(a)
	}
	members.Enter(m)
	return m
}

// implicitMethodFlags returns the modifiers a method gets from its context.
func implicitMethodFlags(c *ClassInfo, d *ast.MethodDecl) resolve.Flags {
	var f resolve.Flags
	switch c.Decl.Kind {
	case ast.DeclInterface, ast.DeclAnnotation:
		if d.HasModifier("private") {
			break
		}
		f |= resolve.FlagPublic
		if !d.HasBody && !d.HasModifier("static") && !d.HasModifier("default") {
			f |= resolve.FlagAbstract
		}
	case ast.DeclEnum:
		if d.Constructor {
			f |= resolve.FlagPrivate
		}
	}
	return f
}

// enterImplicitMembers adds the default constructor of classes and enums,
// and the values/valueOf methods of enums.
func (s *bindState) enterImplicitMembers(c *ClassInfo, members *resolve.Scope) {
	decl := c.Decl
	sym := c.Symbol
	switch decl.Kind {
	case ast.DeclClass, ast.DeclEnum:
	default:
		return
	}

	if !declaresConstructor(decl, -1) {
		flags := sym.Flags() & (resolve.FlagPublic | resolve.FlagProtected | resolve.FlagPrivate)
		if decl.Kind == ast.DeclEnum {
			flags = resolve.FlagPrivate
		}
		ctor := s.table.NewMethod(flags, ConstructorName, sym, resolve.NewMethodType(nil, s.voidType(), nil))
		ctor.SetParameters(resolve.NewOrderedScope(ctor))
		members.Enter(ctor)
	}

	if decl.Kind != ast.DeclEnum {
		return
	}
	values := s.table.NewMethod(resolve.FlagPublic|resolve.FlagStatic, "values", sym,
		resolve.NewMethodType(nil, resolve.NewArrayType(sym.Type()), nil))
	values.SetParameters(resolve.NewOrderedScope(values))
	members.Enter(values)

	strType := s.classType(stringFQN)
	if strType == nil {
		strType = s.table.UnknownType()
	}
	valueOf := s.table.NewMethod(resolve.FlagPublic|resolve.FlagStatic, "valueOf", sym, nil)
	params := resolve.NewOrderedScope(valueOf)
	params.Enter(s.table.NewVariable(0, "name", strType, valueOf))
	valueOf.SetParameters(params)
	valueOf.SetMethodType(resolve.NewMethodType([]*resolve.Type{strType}, sym.Type(), nil))
	members.Enter(valueOf)
}

func (s *bindState) voidType() *resolve.Type {
	t, _ := s.table.Primitive("void")
	return t
}

func (s *bindState) objectType() *resolve.Type {
	return s.classType(ObjectFQN)
}

// classType returns the raw class type of fqn, nil when not bound.
func (s *bindState) classType(fqn string) *resolve.Type {
	if info, ok := s.classes[fqn]; ok {
		return info.Symbol.Type()
	}
	return nil
}
