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

import "sort"

// unknownName is the name carried by the Unknown sentinel symbol.
const unknownName = "!unknown!"

// primitiveNames are the Java primitive types plus void.
var primitiveNames = []string{"boolean", "byte", "char", "short", "int", "long", "float", "double", "void"}

// Table owns every Symbol and Type of one resolved compilation context.
//
// Description:
//
//	Table is the arena of the symbol graph. Symbols and their types point
//	at each other (a class symbol owns its class type, the type points
//	back at the symbol); both are released together when the Table is
//	dropped. Owner links and substitution targets are plain references
//	into the same Table and never outlive it.
//
//	Every owner chain ends at a package. Packages are flat: a package named
//	"com.acme" is owned by the unnamed root package, not by "com".
//
// Thread Safety:
//
//	Not safe for concurrent use. Build and query a Table from one goroutine.
type Table struct {
	root     *Symbol
	packages map[string]*Symbol
	symbols  []*Symbol

	unknownSymbol *Symbol
	unknownType   *Type
	primitives    map[string]*Type
}

// NewTable creates a table holding the root package, the Unknown sentinel
// and the primitive types.
func NewTable() *Table {
	t := &Table{
		packages:   make(map[string]*Symbol),
		primitives: make(map[string]*Type, len(primitiveNames)),
	}
	t.root = t.newPackageSymbol("", nil)
	t.packages[""] = t.root

	t.unknownSymbol = t.NewSymbol(KindErroneous, 0, unknownName, t.root)
	t.unknownSymbol.class = &classPayload{populated: true}
	t.unknownSymbol.class.members = NewScope(t.unknownSymbol)
	t.unknownType = &Type{tag: TagUnknown, symbol: t.unknownSymbol}
	t.unknownSymbol.typ = t.unknownType

	for _, name := range primitiveNames {
		sym := t.NewSymbol(KindType, FlagPublic|FlagFinal, name, t.root)
		sym.typ = &Type{tag: TagPrimitive, symbol: sym}
		sym.markPopulated()
		t.primitives[name] = sym.typ
	}
	return t
}

// Root returns the unnamed root package.
func (t *Table) Root() *Symbol {
	return t.root
}

// UnknownType returns the shared Unknown sentinel type.
func (t *Table) UnknownType() *Type {
	return t.unknownType
}

// UnknownSymbol returns the erroneous symbol behind UnknownType.
func (t *Table) UnknownSymbol() *Symbol {
	return t.unknownSymbol
}

// Primitive returns the primitive type named name ("int", "void", ...).
func (t *Table) Primitive(name string) (*Type, bool) {
	p, ok := t.primitives[name]
	return p, ok
}

// NewSymbol creates a symbol of any kind.
//
// Description:
//
//	Packages get an empty member scope. Types and type variables are
//	co-created with their class or type-variable type. A type symbol
//	answers hierarchy queries only after a completer ran or the binder
//	attached its members or supertypes. Methods get an
//	empty method payload; attach the signature with SetMethodType.
//
// Inputs:
//
//	kind - Exactly one Kind bit.
//	flags - Modifier mask; not authoritative until the symbol completes.
//	name - Simple name.
//	owner - Owning symbol. Only the root package may have a nil owner.
func (t *Table) NewSymbol(kind Kind, flags Flags, name string, owner *Symbol) *Symbol {
	sym := &Symbol{
		kind:     kind,
		flags:    flags,
		name:     name,
		owner:    owner,
		metadata: &Metadata{},
	}
	switch kind {
	case KindPackage:
		sym.class = &classPayload{members: NewScope(sym), populated: true}
	case KindType:
		sym.class = &classPayload{}
		sym.typ = &Type{tag: TagClass, symbol: sym}
	case KindTypeVariable:
		sym.class = &classPayload{members: NewScope(sym), populated: true}
		sym.typ = &Type{tag: TagTypeVariable, symbol: sym}
	case KindMethod:
		sym.method = &methodPayload{}
	}
	t.symbols = append(t.symbols, sym)
	return sym
}

func (t *Table) newPackageSymbol(name string, owner *Symbol) *Symbol {
	return t.NewSymbol(KindPackage, 0, name, owner)
}

// Package returns the package named fqn, creating it under the root package
// on first use.
func (t *Table) Package(fqn string) *Symbol {
	if p, ok := t.packages[fqn]; ok {
		return p
	}
	p := t.newPackageSymbol(fqn, t.root)
	t.packages[fqn] = p
	t.root.class.members.Enter(p)
	return p
}

// LookupPackage returns an existing package without creating it.
func (t *Table) LookupPackage(fqn string) (*Symbol, bool) {
	p, ok := t.packages[fqn]
	return p, ok
}

// Packages returns all named packages sorted by name.
func (t *Table) Packages() []*Symbol {
	out := make([]*Symbol, 0, len(t.packages))
	for name, p := range t.packages {
		if name != "" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// NewClass creates a type symbol together with its class type.
func (t *Table) NewClass(flags Flags, name string, owner *Symbol) *Symbol {
	return t.NewSymbol(KindType, flags, name, owner)
}

// NewMethod creates a method symbol; methodType may be nil and attached
// later with SetMethodType.
func (t *Table) NewMethod(flags Flags, name string, owner *Symbol, methodType *Type) *Symbol {
	sym := t.NewSymbol(KindMethod, flags, name, owner)
	if methodType != nil {
		sym.SetMethodType(methodType)
	}
	return sym
}

// NewVariable creates a variable symbol of type typ.
func (t *Table) NewVariable(flags Flags, name string, typ *Type, owner *Symbol) *Symbol {
	sym := t.NewSymbol(KindVariable, flags, name, owner)
	sym.typ = typ
	return sym
}

// NewTypeVariable creates a type-parameter symbol with its type-variable type.
func (t *Table) NewTypeVariable(name string, owner *Symbol) *Symbol {
	return t.NewSymbol(KindTypeVariable, 0, name, owner)
}

// Symbols returns every symbol created by the table, in creation order.
func (t *Table) Symbols() []*Symbol {
	out := make([]*Symbol, len(t.symbols))
	copy(out, t.symbols)
	return out
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.symbols)
}
