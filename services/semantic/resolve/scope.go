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

// Scope is a name-indexed, multi-valued lookup table owned by one Symbol.
//
// Description:
//
//	Several symbols may share a name (overloaded methods, a field and a
//	method of the same name, shadowed declarations). Entries are
//	append-only and keep declaration order inside a name bucket. Scope does
//	no visibility filtering; callers apply accessibility rules.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. A Scope belongs to one Table, which
//	is resolved by a single goroutine.
type Scope struct {
	owner  *Symbol
	byName map[string][]*Symbol
	order  []*Symbol
}

// NewScope creates an empty scope owned by owner.
func NewScope(owner *Symbol) *Scope {
	return &Scope{
		owner:  owner,
		byName: make(map[string][]*Symbol),
	}
}

// Owner returns the symbol that owns this scope.
func (s *Scope) Owner() *Symbol {
	return s.owner
}

// Enter appends sym under its name.
func (s *Scope) Enter(sym *Symbol) {
	s.byName[sym.name] = append(s.byName[sym.name], sym)
	s.order = append(s.order, sym)
}

// Lookup returns every symbol registered under name, in declaration order.
//
// Outputs:
//
//	[]*Symbol - A copy of the bucket; empty (nil) when nothing is registered.
func (s *Scope) Lookup(name string) []*Symbol {
	if s == nil {
		return nil
	}
	bucket := s.byName[name]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Symbol, len(bucket))
	copy(out, bucket)
	return out
}

// Symbols returns all entries in insertion order.
func (s *Scope) Symbols() []*Symbol {
	if s == nil {
		return nil
	}
	out := make([]*Symbol, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of entries.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// OrderedScope is a Scope whose entries are also addressable by position.
// Method parameter lists use it: position matters for arity and
// per-parameter comparison.
type OrderedScope struct {
	Scope
}

// NewOrderedScope creates an empty ordered scope owned by owner.
func NewOrderedScope(owner *Symbol) *OrderedScope {
	return &OrderedScope{Scope: *NewScope(owner)}
}

// At returns the i-th entered symbol. It panics when i is out of range.
func (s *OrderedScope) At(i int) *Symbol {
	return s.order[i]
}
