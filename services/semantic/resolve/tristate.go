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

import "fmt"

// TriState is a three-valued answer: True, False, or Unknown when the
// information needed to decide is missing.
//
// The zero value is TriUnknown, so an uninitialised result never reads as
// a definite "no". Callers must handle TriUnknown explicitly.
type TriState uint8

const (
	// TriUnknown means the answer cannot be determined.
	TriUnknown TriState = iota

	// TriFalse means definitely not.
	TriFalse

	// TriTrue means definitely yes.
	TriTrue
)

// IsTrue reports whether t is TriTrue.
func (t TriState) IsTrue() bool { return t == TriTrue }

// IsFalse reports whether t is TriFalse.
func (t TriState) IsFalse() bool { return t == TriFalse }

// IsUnknown reports whether t is TriUnknown.
func (t TriState) IsUnknown() bool { return t == TriUnknown }

// Or combines two contributions: True wins, then Unknown, then False.
func (t TriState) Or(other TriState) TriState {
	if t == TriTrue || other == TriTrue {
		return TriTrue
	}
	if t == TriUnknown || other == TriUnknown {
		return TriUnknown
	}
	return TriFalse
}

// String returns "true", "false" or "unknown".
func (t TriState) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "unknown"
	}
}

// TriStateOf converts a definite boolean.
func TriStateOf(b bool) TriState {
	if b {
		return TriTrue
	}
	return TriFalse
}

// InvariantError is the panic value raised when the symbol graph violates a
// construction invariant, e.g. querying the parameters of a method whose
// type was never attached. It signals a binder defect, not bad input.
type InvariantError struct {
	Symbol string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("resolve: invariant violated on %q: %s", e.Symbol, e.Detail)
}

// invariant panics with an *InvariantError when ok is false.
func invariant(ok bool, sym *Symbol, format string, args ...any) {
	if ok {
		return
	}
	name := "<nil>"
	if sym != nil {
		name = sym.name
	}
	panic(&InvariantError{Symbol: name, Detail: fmt.Sprintf(format, args...)})
}
