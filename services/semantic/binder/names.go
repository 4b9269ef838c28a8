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
	"log/slog"
	"strings"

	"github.com/AleutianAI/semantic/services/semantic/ast"
	"github.com/AleutianAI/semantic/services/semantic/resolve"
)

// nameEnv is the lexical context a type reference is resolved in.
type nameEnv struct {
	class      *ClassInfo
	methodVars map[string]*resolve.Type

	// context names the declaration for unresolved-reference reports.
	context string
}

// resolveTypeRef turns a source type reference into a Type.
//
// Description:
//
//	Generic arguments produce a parametrized type when their count matches
//	the class's type parameters; otherwise the raw class type is used.
//	A wildcard resolves to its extends bound, or Object for "?" and
//	"? super X". A name that cannot be found yields the Unknown type and
//	is recorded. Array dimensions wrap the result.
//
// Outputs:
//
//	*resolve.Type - Never nil.
func (s *bindState) resolveTypeRef(ref *ast.TypeRef, env *nameEnv) *resolve.Type {
	if ref == nil {
		return s.table.UnknownType()
	}
	if ref.IsWildcard() {
		if ref.Wildcard == ast.WildcardExtends && ref.Bound != nil {
			return s.resolveTypeRef(ref.Bound, env)
		}
		if obj := s.objectType(); obj != nil {
			return obj
		}
		return s.table.UnknownType()
	}

	t := s.resolveName(ref.Name, env)
	switch {
	case t == nil:
		t = s.recordUnresolved(env.class, ref.Name, env.context)
	case len(ref.Args) > 0 && t.IsTagged(resolve.TagClass):
		t = s.parametrize(t, ref.Args, env)
	}
	for i := 0; i < ref.Dims; i++ {
		t = resolve.NewArrayType(t)
	}
	return t
}

func (s *bindState) parametrize(raw *resolve.Type, args []*ast.TypeRef, env *nameEnv) *resolve.Type {
	vars := raw.Symbol().TypeVariableTypes()
	if len(vars) != len(args) {
		s.logger.Debug("type argument count mismatch, using raw type",
			slog.String("type", raw.String()),
			slog.Int("params", len(vars)),
			slog.Int("args", len(args)))
		return raw
	}
	subst := resolve.NewSubstitution()
	for i, a := range args {
		subst.Put(vars[i], s.resolveTypeRef(a, env))
	}
	return resolve.NewParametrizedType(raw.Symbol(), subst)
}

// resolveName finds the type a simple or dotted name denotes, nil when
// nothing matches.
func (s *bindState) resolveName(name string, env *nameEnv) *resolve.Type {
	if !strings.Contains(name, ".") {
		return s.lookupSimple(name, env)
	}
	parts := strings.Split(name, ".")

	// Outer.Inner where Outer is itself visible by simple name.
	if info := s.lookupSimpleClass(parts[0], env); info != nil {
		for _, part := range parts[1:] {
			if info = s.memberType(info, part); info == nil {
				break
			}
		}
		if info != nil {
			return info.Symbol.Type()
		}
	}

	if info, ok := s.classes[name]; ok {
		return info.Symbol.Type()
	}
	return nil
}

// lookupSimple resolves an undotted name in JLS order: type variables and
// member types from the innermost class outwards, then the unit's imports
// and package, then primitives.
func (s *bindState) lookupSimple(name string, env *nameEnv) *resolve.Type {
	if t, ok := env.methodVars[name]; ok {
		return t
	}
	for c := env.class; c != nil; c = c.outer {
		if c != env.class {
			c.Symbol.Complete()
		}
		if t, ok := c.typeVars[name]; ok {
			return t
		}
		if m := s.memberType(c, name); m != nil {
			return m.Symbol.Type()
		}
	}
	if info := s.lookupInUnit(name, env.class.unit); info != nil {
		return info.Symbol.Type()
	}
	if p, ok := s.table.Primitive(name); ok {
		return p
	}
	return nil
}

// lookupSimpleClass is lookupSimple restricted to classes.
func (s *bindState) lookupSimpleClass(name string, env *nameEnv) *ClassInfo {
	for c := env.class; c != nil; c = c.outer {
		if m := s.memberType(c, name); m != nil {
			return m
		}
	}
	return s.lookupInUnit(name, env.class.unit)
}

// memberType finds a member type of c, declared or inherited.
func (s *bindState) memberType(c *ClassInfo, name string) *ClassInfo {
	if n, ok := c.nested[name]; ok {
		return n
	}
	c.Symbol.Complete()
	if !c.hierarchyReady {
		return nil
	}
	for _, super := range c.Symbol.SuperTypes() {
		if super.IsUnknown() {
			continue
		}
		if info, ok := s.bySymbol[super.Symbol()]; ok {
			if n, ok := info.nested[name]; ok {
				return n
			}
		}
	}
	return nil
}

// lookupInUnit consults single-type imports, the unit's own package,
// on-demand imports and implicit imports, in that order.
func (s *bindState) lookupInUnit(name string, unit *unitEnv) *ClassInfo {
	if fqn, ok := unit.single[name]; ok {
		if info, ok := s.classes[fqn]; ok {
			return info
		}
	}
	if info, ok := s.classes[qualify(unit.pkgName, name)]; ok {
		return info
	}

	var found *ClassInfo
	for _, imp := range unit.onDemand {
		info, ok := s.classes[imp+"."+name]
		if !ok || info == found {
			continue
		}
		if found != nil {
			s.logger.Debug("ambiguous on-demand import",
				slog.String("file", unit.filePath),
				slog.String("name", name),
				slog.String("first", found.FQN()),
				slog.String("second", info.FQN()))
			return nil
		}
		found = info
	}
	if found != nil {
		return found
	}

	for _, pkg := range s.implicit {
		if info, ok := s.classes[qualify(pkg, name)]; ok {
			return info
		}
	}
	return nil
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
