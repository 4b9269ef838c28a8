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

// IsOverridden reports whether method s overrides a method of an ancestor.
//
// Description:
//
//	Every ancestor of the enclosing class (see SuperTypes) is searched for
//	methods of the same name. A candidate contributes only when it is
//	accessible from s (see canOverride). The answers combine with
//	TriState.Or: any True wins immediately, an Unknown ancestor or an
//	unresolved parameter type turns False into Unknown.
//
//	Return types are not compared. Varargs and array parameters are
//	compared by erasure only, so T... and T[] match.
//
// Outputs:
//
//	TriState - True, False, or Unknown when incomplete information
//	prevents an answer. Callers must not treat Unknown as False.
//
// Limitations:
//
//	Substitution is applied through the ancestor's own type arguments
//	only. An ancestor that is generic over a type variable of an
//	intermediate class is compared against that variable's erasure.
func (s *Symbol) IsOverridden() TriState {
	invariant(s.Is(KindMethod), s, "override check on a %s symbol", s.kind)
	result := s.isOverridden()
	overrideResolutionsTotal.WithLabelValues(result.String()).Inc()
	return result
}

func (s *Symbol) isOverridden() TriState {
	enclosing := s.EnclosingClass()
	if enclosing == nil {
		return TriFalse
	}
	result := TriFalse
	for _, super := range enclosing.SuperTypes() {
		result = result.Or(s.overridesFrom(super))
		if result.IsTrue() {
			return TriTrue
		}
	}
	return result
}

// overridesFrom checks the candidates declared directly in one ancestor.
func (s *Symbol) overridesFrom(classType *Type) TriState {
	if classType.IsTagged(TagUnknown) {
		return TriUnknown
	}
	result := TriFalse
	for _, candidate := range classType.symbol.Members().Lookup(s.name) {
		if !candidate.Is(KindMethod) || !s.canOverride(candidate) {
			continue
		}
		result = result.Or(s.isOverriding(candidate, classType))
		if result.IsTrue() {
			return TriTrue
		}
	}
	return result
}

// canOverride applies the accessibility filter. A package-private candidate
// is only visible from the same package; a private one never is.
func (s *Symbol) canOverride(candidate *Symbol) bool {
	if candidate.IsPackageVisibility() {
		return candidate.OutermostClass().Owner() == s.OutermostClass().Owner()
	}
	return !candidate.IsPrivate()
}

// isOverriding compares parameter erasures position by position.
func (s *Symbol) isOverriding(candidate *Symbol, classType *Type) TriState {
	params := s.ParameterTypes()
	candidateParams := candidate.ParameterTypes()
	if len(params) != len(candidateParams) {
		return TriFalse
	}
	for i, param := range params {
		if param.IsUnknown() {
			return TriUnknown
		}
		candidateParam := candidateParams[i]
		if classType.IsTagged(TagParametrized) {
			candidateParam = substitute(classType.substitution, candidateParam)
		}
		if !param.Erasure().Equal(candidateParam.Erasure()) {
			return TriFalse
		}
	}
	return TriTrue
}

// substitute translates t through subst, descending into array elements.
// A type with no mapping is returned unchanged.
func substitute(subst *Substitution, t *Type) *Type {
	if t.IsTagged(TagArray) {
		elem := substitute(subst, t.elem)
		if elem == t.elem {
			return t
		}
		return NewArrayType(elem)
	}
	if mapped, ok := subst.Lookup(t); ok && mapped != nil {
		return mapped
	}
	return t
}
