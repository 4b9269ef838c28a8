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

// typeSet is an insertion-ordered set of types keyed by pointer identity.
type typeSet struct {
	seen  map[*Type]struct{}
	order []*Type
}

func newTypeSet() *typeSet {
	return &typeSet{seen: make(map[*Type]struct{})}
}

// add inserts t and reports whether it was new. Parametrized types are
// compared structurally, so two references to I<String> collapse.
func (ts *typeSet) add(t *Type) bool {
	if t == nil {
		return false
	}
	if _, ok := ts.seen[t]; ok {
		return false
	}
	if t.tag == TagParametrized {
		for _, existing := range ts.order {
			if existing.Equal(t) {
				return false
			}
		}
	}
	ts.seen[t] = struct{}{}
	ts.order = append(ts.order, t)
	return true
}

// SuperTypes returns every ancestor class type of a type symbol.
//
// Description:
//
//	The result holds the symbol's declared interfaces closed transitively
//	over their own interfaces, then each class of the superclass chain
//	together with the same interface closure for that class. The chain is
//	walked until a class has no superclass. A type reachable along several
//	paths (diamond inheritance) appears once. The symbol's own type is
//	never included.
//
//	Cyclic inheritance is not reported; the walk simply stops at a type
//	it has already collected.
//
// Outputs:
//
//	[]*Type - Duplicate-free ancestors. Order is stable but carries no meaning.
func (s *Symbol) SuperTypes() []*Type {
	types := newTypeSet()
	s.collectInterfaces(types)
	for super := s.Superclass(); super != nil; {
		if !types.add(super) {
			break
		}
		superSym := super.symbol
		superSym.collectInterfaces(types)
		super = superSym.Superclass()
	}
	return types.order
}

// collectInterfaces adds the interfaces of s and, transitively, theirs.
func (s *Symbol) collectInterfaces(types *typeSet) {
	for _, iface := range s.Interfaces() {
		if types.add(iface) {
			iface.symbol.collectInterfaces(types)
		}
	}
}
