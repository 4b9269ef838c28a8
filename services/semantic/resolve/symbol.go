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

// Completer fills in the deferred fields of a symbol on first demand.
//
// A completer either fully populates the symbol or leaves it tagged
// erroneous/unknown. It never returns an error.
type Completer interface {
	Complete(sym *Symbol)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(sym *Symbol)

// Complete calls f(sym).
func (f CompleterFunc) Complete(sym *Symbol) {
	f(sym)
}

// Symbol is a named declared entity: package, type, variable, method or
// type variable, or one of the sentinel kinds for unresolved references.
//
// Description:
//
//	All kinds share the header (kind, flags, name, owner, type, completer,
//	metadata). Kind-specific data lives in payloads:
//	  - classPayload for packages, types and type variables (member scope,
//	    type-parameter scope, type-variable types)
//	  - methodPayload for methods (parameter scope, type-parameter scope,
//	    type-variable types, cached return-type symbol)
//
//	The owner link is a non-owning reference. Every owner chain ends at a
//	KindPackage symbol. Symbols live as long as the Table that created them.
//
// Thread Safety:
//
//	Not safe for concurrent use. Completion is a plain one-shot swap that
//	assumes a single resolving goroutine per Table.
type Symbol struct {
	kind      Kind
	flags     Flags
	name      string
	owner     *Symbol
	typ       *Type
	completer Completer
	metadata  *Metadata

	class  *classPayload
	method *methodPayload
}

type classPayload struct {
	members        *Scope
	typeParameters *Scope
	typeVariables  []*Type

	// populated is set once a completer ran or the binder attached the
	// member scope or the supertypes. Hierarchy queries require it.
	populated bool
}

type methodPayload struct {
	returnType     *Symbol
	parameters     *OrderedScope
	typeParameters *Scope
	typeVariables  []*Type
}

// Kind returns the symbol kind.
func (s *Symbol) Kind() Kind {
	return s.kind
}

// Is reports whether the symbol's kind is any of kinds.
func (s *Symbol) Is(kinds Kind) bool {
	return s.kind&kinds != 0
}

// IsPackage reports whether s is a package.
func (s *Symbol) IsPackage() bool { return s.Is(KindPackage) }

// IsTypeSymbol reports whether s is a type or a type variable.
func (s *Symbol) IsTypeSymbol() bool { return s.Is(KindType | KindTypeVariable) }

// IsVariableSymbol reports whether s is a variable.
func (s *Symbol) IsVariableSymbol() bool { return s.Is(KindVariable) }

// IsMethodSymbol reports whether s is a method or constructor.
func (s *Symbol) IsMethodSymbol() bool { return s.Is(KindMethod) }

// IsTypeVariable reports whether s is a declared type parameter.
func (s *Symbol) IsTypeVariable() bool { return s.Is(KindTypeVariable) }

// IsErroneous reports whether s is one of the sentinel kinds.
func (s *Symbol) IsErroneous() bool { return s.Is(kindSentinels) }

// Name returns the simple name.
func (s *Symbol) Name() string {
	return s.name
}

// Owner returns the owning symbol, nil only for the root package.
func (s *Symbol) Owner() *Symbol {
	return s.owner
}

// Type returns the attached type, possibly nil before completion.
func (s *Symbol) Type() *Type {
	return s.typ
}

// SetType attaches t. On a method symbol it behaves as SetMethodType, so t
// must be a method type.
func (s *Symbol) SetType(t *Type) {
	if s.method != nil {
		s.SetMethodType(t)
		return
	}
	s.typ = t
}

// Flags returns the raw modifier mask without forcing completion.
func (s *Symbol) Flags() Flags {
	return s.flags
}

// AddFlags sets additional modifier bits. Binder use only.
func (s *Symbol) AddFlags(f Flags) {
	s.flags |= f
}

// SetCompleter attaches c, putting the symbol in the pending state.
func (s *Symbol) SetCompleter(c Completer) {
	s.completer = c
}

// IsCompleted reports whether no completer is pending.
func (s *Symbol) IsCompleted() bool {
	return s.completer == nil
}

// Complete runs the pending completer, if any, exactly once.
//
// Description:
//
//	The completer reference is cleared before the callback runs. A
//	re-entrant request (a class whose completion queries itself through a
//	generic bound) therefore observes the symbol as already completed
//	instead of running the same completer twice. Without a completer this
//	is a no-op.
func (s *Symbol) Complete() {
	if s.completer == nil {
		return
	}
	c := s.completer
	s.completer = nil
	s.markPopulated()
	completionsTotal.WithLabelValues(s.kind.String()).Inc()
	c.Complete(s)
}

// Metadata forces completion and returns declaration-level metadata.
func (s *Symbol) Metadata() *Metadata {
	s.Complete()
	return s.metadata
}

func (s *Symbol) isFlag(f Flags) bool {
	s.Complete()
	return s.flags&f != 0
}

// IsStatic reports the static modifier.
func (s *Symbol) IsStatic() bool { return s.isFlag(FlagStatic) }

// IsFinal reports the final modifier.
func (s *Symbol) IsFinal() bool { return s.isFlag(FlagFinal) }

// IsAbstract reports the abstract modifier.
func (s *Symbol) IsAbstract() bool { return s.isFlag(FlagAbstract) }

// IsPublic reports the public modifier.
func (s *Symbol) IsPublic() bool { return s.isFlag(FlagPublic) }

// IsPrivate reports the private modifier.
func (s *Symbol) IsPrivate() bool { return s.isFlag(FlagPrivate) }

// IsProtected reports the protected modifier.
func (s *Symbol) IsProtected() bool { return s.isFlag(FlagProtected) }

// IsDeprecated reports @Deprecated.
func (s *Symbol) IsDeprecated() bool { return s.isFlag(FlagDeprecated) }

// IsVolatile reports the volatile modifier.
func (s *Symbol) IsVolatile() bool { return s.isFlag(FlagVolatile) }

// IsEnum reports an enum type or enum constant.
func (s *Symbol) IsEnum() bool { return s.isFlag(FlagEnum) }

// IsInterface reports an interface or annotation type.
func (s *Symbol) IsInterface() bool { return s.isFlag(FlagInterface) }

// IsVarArgs reports a variable-arity method.
func (s *Symbol) IsVarArgs() bool { return s.isFlag(FlagVarArgs) }

// IsPackageVisibility reports that none of public, private or protected is set.
func (s *Symbol) IsPackageVisibility() bool {
	s.Complete()
	return s.flags&accessFlags == 0
}

// OutermostClass returns the top-level type that, directly or indirectly,
// owns s. It returns nil for packages.
func (s *Symbol) OutermostClass() *Symbol {
	s.Complete()
	var result *Symbol
	for sym := s; !sym.Is(KindPackage); sym = sym.owner {
		invariant(sym.owner != nil, s, "owner chain does not reach a package")
		result = sym
	}
	return result
}

// Package returns the package that, directly or indirectly, owns s.
func (s *Symbol) Package() *Symbol {
	s.Complete()
	sym := s
	for !sym.Is(KindPackage) {
		invariant(sym.owner != nil, s, "owner chain does not reach a package")
		sym = sym.owner
	}
	return sym
}

// EnclosingClass returns the closest KindType symbol on the owner chain,
// starting at s itself, or nil when there is none.
func (s *Symbol) EnclosingClass() *Symbol {
	s.Complete()
	sym := s
	for sym != nil && !sym.Is(KindType) {
		sym = sym.owner
	}
	return sym
}

// FullyQualifiedName returns owner-qualified dotted name, e.g.
// "com.acme.Outer.Inner". Packages return their own dotted name.
func (s *Symbol) FullyQualifiedName() string {
	if s.Is(KindPackage) || s.owner == nil {
		return s.name
	}
	prefix := s.owner.FullyQualifiedName()
	if prefix == "" || s.owner.Is(KindMethod) {
		return s.name
	}
	return prefix + "." + s.name
}

// String returns the fully qualified name.
func (s *Symbol) String() string {
	return s.FullyQualifiedName()
}

// Members forces completion and returns the member scope of a package,
// type or type variable. It is nil for other kinds.
//
// A type symbol that never had a completer and was never populated by the
// binder has no answer; asking is an invariant fault.
func (s *Symbol) Members() *Scope {
	s.Complete()
	if s.class == nil {
		return nil
	}
	s.requirePopulated("members")
	return s.class.members
}

// SetMembers attaches the member scope. Binder use only.
func (s *Symbol) SetMembers(scope *Scope) {
	invariant(s.class != nil, s, "%s symbols have no member scope", s.kind)
	s.class.members = scope
	s.class.populated = true
}

func (s *Symbol) markPopulated() {
	if s.class != nil {
		s.class.populated = true
	}
}

func (s *Symbol) requirePopulated(what string) {
	invariant(s.class.populated, s, "%s requested on a symbol that was never completed or populated", what)
}

// TypeParameters forces completion and returns the type-parameter scope of
// a type or method.
func (s *Symbol) TypeParameters() *Scope {
	s.Complete()
	switch {
	case s.class != nil:
		return s.class.typeParameters
	case s.method != nil:
		return s.method.typeParameters
	}
	return nil
}

// SetTypeParameters attaches the type-parameter scope. Binder use only.
func (s *Symbol) SetTypeParameters(scope *Scope) {
	switch {
	case s.class != nil:
		s.class.typeParameters = scope
	case s.method != nil:
		s.method.typeParameters = scope
	default:
		invariant(false, s, "%s symbols have no type parameters", s.kind)
	}
}

// AddTypeParameter appends a type-variable type in declaration order.
func (s *Symbol) AddTypeParameter(tv *Type) {
	switch {
	case s.class != nil:
		s.class.typeVariables = append(s.class.typeVariables, tv)
	case s.method != nil:
		s.method.typeVariables = append(s.method.typeVariables, tv)
	default:
		invariant(false, s, "%s symbols have no type parameters", s.kind)
	}
}

// TypeVariableTypes forces completion and returns the declared type
// variables in order.
func (s *Symbol) TypeVariableTypes() []*Type {
	s.Complete()
	switch {
	case s.class != nil:
		return s.class.typeVariables
	case s.method != nil:
		return s.method.typeVariables
	}
	return nil
}

// Superclass forces completion and returns the declared superclass type of
// a class, nil for interfaces, java.lang.Object and type variables.
func (s *Symbol) Superclass() *Type {
	s.Complete()
	if s.Is(KindTypeVariable) {
		return nil
	}
	invariant(s.typ != nil && s.typ.IsClass(), s, "superclass requested without a class type")
	s.requirePopulated("superclass")
	return s.typ.supertype
}

// Interfaces forces completion and returns the declared interfaces.
func (s *Symbol) Interfaces() []*Type {
	s.Complete()
	if s.Is(KindTypeVariable) {
		return nil
	}
	invariant(s.typ != nil && s.typ.IsClass(), s, "interfaces requested without a class type")
	s.requirePopulated("interfaces")
	return s.typ.interfaces
}

// Parameters returns the ordered parameter scope of a method.
func (s *Symbol) Parameters() *OrderedScope {
	if s.method == nil {
		return nil
	}
	return s.method.parameters
}

// SetParameters attaches the ordered parameter scope. Binder use only.
func (s *Symbol) SetParameters(params *OrderedScope) {
	invariant(s.method != nil, s, "%s symbols have no parameters", s.kind)
	s.method.parameters = params
}

// SetMethodType replaces the method signature and keeps the cached return
// type symbol in sync with it.
func (s *Symbol) SetMethodType(t *Type) {
	invariant(s.method != nil, s, "method type attached to a %s symbol", s.kind)
	invariant(t != nil && t.tag == TagMethod, s, "attached type is not a method type")
	s.typ = t
	if t.result != nil {
		s.method.returnType = t.result.symbol
	}
}

// ReturnType returns the symbol of the method's result type, nil for
// arrays and before a signature is attached.
func (s *Symbol) ReturnType() *Symbol {
	if s.method == nil {
		return nil
	}
	return s.method.returnType
}

// ParameterTypes returns the method's ordered argument types.
func (s *Symbol) ParameterTypes() []*Type {
	invariant(s.method != nil && s.typ != nil, s, "parameter types requested without a method type")
	return s.typ.args
}

// ThrownTypes returns the method's declared thrown types.
func (s *Symbol) ThrownTypes() []*Type {
	invariant(s.method != nil && s.typ != nil, s, "thrown types requested without a method type")
	return s.typ.thrown
}

// Metadata holds declaration-level information that the algorithms do not
// interpret, currently the annotations written on the declaration.
type Metadata struct {
	annotations []string
}

// AddAnnotation records an annotation by the name written in source.
func (m *Metadata) AddAnnotation(name string) {
	m.annotations = append(m.annotations, name)
}

// Annotations returns annotation names in declaration order.
func (m *Metadata) Annotations() []string {
	return m.annotations
}

// IsAnnotatedWith matches either the simple or the qualified name, so
// "Override" and "java.lang.Override" both match an @Override annotation.
func (m *Metadata) IsAnnotatedWith(name string) bool {
	for _, a := range m.annotations {
		if a == name || simpleName(a) == simpleName(name) {
			return true
		}
	}
	return false
}

func simpleName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
