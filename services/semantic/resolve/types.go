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

import "strings"

// Tag is the category of a Type.
type Tag uint8

const (
	// TagClass is a class or interface type (raw when generic).
	TagClass Tag = iota + 1

	// TagParametrized is a generic class instantiated with arguments.
	TagParametrized

	// TagMethod is a method signature.
	TagMethod

	// TagTypeVariable is a type parameter placeholder.
	TagTypeVariable

	// TagArray is an array of an element type.
	TagArray

	// TagPrimitive is int, boolean, void and friends.
	TagPrimitive

	// TagUnknown is the sentinel produced when resolution fails.
	TagUnknown
)

var tagNames = map[Tag]string{
	TagClass:        "class",
	TagParametrized: "parametrized",
	TagMethod:       "method",
	TagTypeVariable: "type_variable",
	TagArray:        "array",
	TagPrimitive:    "primitive",
	TagUnknown:      "unknown",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "invalid"
}

// Type is the tagged type model.
//
// Description:
//
//	One struct covers every category; which fields are meaningful depends
//	on Tag:
//	  - Class/Unknown: symbol, supertype, interfaces
//	  - Parametrized: symbol (the generic class) and substitution
//	  - Method: args, result, thrown
//	  - TypeVariable: symbol (the KindTypeVariable symbol) and bounds
//	  - Array: elem
//	  - Primitive: symbol
//
//	Class and Parametrized types hold a back-reference to the symbol they
//	represent. For class types that reference is set when the symbol is
//	created (see Table.NewClass) and never changes.
type Type struct {
	tag    Tag
	symbol *Symbol

	supertype  *Type
	interfaces []*Type

	substitution *Substitution

	args   []*Type
	result *Type
	thrown []*Type

	bounds []*Type

	elem *Type
}

// Tag returns the category of t.
func (t *Type) Tag() Tag {
	return t.tag
}

// IsTagged reports whether t has the given tag.
func (t *Type) IsTagged(tag Tag) bool {
	return t != nil && t.tag == tag
}

// Symbol returns the symbol t represents, or nil for method and array types.
func (t *Type) Symbol() *Symbol {
	return t.symbol
}

// IsUnknown reports whether t is the Unknown sentinel or an array of it.
func (t *Type) IsUnknown() bool {
	if t == nil {
		return false
	}
	if t.tag == TagArray {
		return t.elem.IsUnknown()
	}
	return t.tag == TagUnknown
}

// IsClass reports whether t is a class-like type that owns members:
// class, parametrized or unknown.
func (t *Type) IsClass() bool {
	return t != nil && (t.tag == TagClass || t.tag == TagParametrized || t.tag == TagUnknown)
}

// Supertype returns the declared superclass of a class type.
func (t *Type) Supertype() *Type {
	return t.supertype
}

// SetSupertype records the superclass. Binder use only.
func (t *Type) SetSupertype(super *Type) {
	t.supertype = super
	t.markOwnerPopulated()
}

// Interfaces returns the declared interfaces of a class type in order.
func (t *Type) Interfaces() []*Type {
	return t.interfaces
}

// SetInterfaces records the implemented (or extended) interfaces. Binder use only.
func (t *Type) SetInterfaces(ifaces []*Type) {
	t.interfaces = ifaces
	t.markOwnerPopulated()
}

// markOwnerPopulated flags the symbol whose own class type t is.
func (t *Type) markOwnerPopulated() {
	if t.symbol != nil && t.symbol.typ == t {
		t.symbol.markPopulated()
	}
}

// Substitution returns the type-argument mapping of a parametrized type.
func (t *Type) Substitution() *Substitution {
	return t.substitution
}

// ArgTypes returns the ordered parameter types of a method type.
func (t *Type) ArgTypes() []*Type {
	return t.args
}

// ResultType returns the result of a method type.
func (t *Type) ResultType() *Type {
	return t.result
}

// ThrownTypes returns the declared thrown types of a method type.
func (t *Type) ThrownTypes() []*Type {
	return t.thrown
}

// Bounds returns the upper bounds of a type variable.
func (t *Type) Bounds() []*Type {
	return t.bounds
}

// SetBounds records the upper bounds of a type variable. Binder use only.
func (t *Type) SetBounds(bounds []*Type) {
	t.bounds = bounds
}

// Elem returns the element type of an array type.
func (t *Type) Elem() *Type {
	return t.elem
}

// NewParametrizedType instantiates the generic class sym with subst.
func NewParametrizedType(sym *Symbol, subst *Substitution) *Type {
	if subst == nil {
		subst = NewSubstitution()
	}
	return &Type{tag: TagParametrized, symbol: sym, substitution: subst}
}

// NewMethodType builds a method signature.
func NewMethodType(args []*Type, result *Type, thrown []*Type) *Type {
	return &Type{tag: TagMethod, args: args, result: result, thrown: thrown}
}

// NewArrayType builds an array of elem.
func NewArrayType(elem *Type) *Type {
	return &Type{tag: TagArray, elem: elem}
}

// Erasure returns t with generic information removed.
//
// Description:
//
//	  - Parametrized: the raw class type of its symbol
//	  - TypeVariable: the erasure of its first bound (itself when unbounded)
//	  - Array: an array of the erased element
//	  - everything else: t itself
func (t *Type) Erasure() *Type {
	if t == nil {
		return nil
	}
	switch t.tag {
	case TagParametrized:
		return t.symbol.typ
	case TagTypeVariable:
		if len(t.bounds) > 0 && t.bounds[0] != t {
			return t.bounds[0].Erasure()
		}
		return t
	case TagArray:
		erased := t.elem.Erasure()
		if erased == t.elem {
			return t
		}
		return NewArrayType(erased)
	default:
		return t
	}
}

// Equal reports structural equality.
//
// Class and primitive types are equal when they represent the same symbol;
// arrays when their elements are equal; parametrized types when the generic
// class and every argument are equal; method types when arguments and result
// are equal. Type variables are only equal to themselves.
func (t *Type) Equal(other *Type) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || t.tag != other.tag {
		return false
	}
	switch t.tag {
	case TagClass, TagPrimitive, TagUnknown:
		return t.symbol == other.symbol
	case TagArray:
		return t.elem.Equal(other.elem)
	case TagParametrized:
		return t.symbol == other.symbol && t.substitution.equal(other.substitution)
	case TagMethod:
		return typesEqual(t.args, other.args) && t.result.Equal(other.result)
	default:
		return false
	}
}

func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// String renders t the way it would be written in source.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.tag {
	case TagClass:
		return t.symbol.FullyQualifiedName()
	case TagPrimitive, TagTypeVariable:
		return t.symbol.name
	case TagUnknown:
		return "!unknown!"
	case TagArray:
		return t.elem.String() + "[]"
	case TagParametrized:
		var b strings.Builder
		b.WriteString(t.symbol.FullyQualifiedName())
		b.WriteByte('<')
		for i, arg := range t.substitution.Args() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(arg.String())
		}
		b.WriteByte('>')
		return b.String()
	case TagMethod:
		var b strings.Builder
		b.WriteByte('(')
		for i, arg := range t.args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(arg.String())
		}
		b.WriteByte(')')
		b.WriteString(t.result.String())
		return b.String()
	}
	return "<invalid>"
}

// Substitution maps type-variable types to concrete argument types for one
// parametrized type. Entries keep the order of the generic declaration.
//
// The map targets are non-owning references: they name types that live in
// the same Table.
type Substitution struct {
	vars []*Type
	args []*Type
}

// NewSubstitution creates an empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{}
}

// Put maps typeVar to arg, replacing any earlier mapping for typeVar.
func (s *Substitution) Put(typeVar, arg *Type) {
	for i, v := range s.vars {
		if v == typeVar {
			s.args[i] = arg
			return
		}
	}
	s.vars = append(s.vars, typeVar)
	s.args = append(s.args, arg)
}

// Lookup translates t. A type with no mapping yields (nil, false); the
// caller falls back to the unsubstituted type.
func (s *Substitution) Lookup(t *Type) (*Type, bool) {
	if s == nil {
		return nil, false
	}
	for i, v := range s.vars {
		if v == t {
			return s.args[i], true
		}
	}
	return nil, false
}

// Len returns the number of mappings.
func (s *Substitution) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

// Vars returns the mapped type variables in order.
func (s *Substitution) Vars() []*Type {
	if s == nil {
		return nil
	}
	return s.vars
}

// Args returns the argument types in order.
func (s *Substitution) Args() []*Type {
	if s == nil {
		return nil
	}
	return s.args
}

func (s *Substitution) equal(other *Substitution) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, v := range s.Vars() {
		arg, ok := other.Lookup(v)
		if !ok || !s.args[i].Equal(arg) {
			return false
		}
	}
	return true
}
