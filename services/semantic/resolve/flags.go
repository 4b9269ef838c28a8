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

// Kind identifies what a Symbol declares.
//
// Kinds are single bits so a symbol can be tested against several kinds at
// once with Symbol.Is(KindType | KindTypeVariable). The sentinel kinds
// (Erroneous, Ambiguous, Absent) occupy their own bits and never alias a
// declared kind.
type Kind uint16

const (
	// KindPackage is a package (the root of every owner chain).
	KindPackage Kind = 1 << 0

	// KindType is a class, interface, enum, record or annotation type.
	KindType Kind = 1 << 1

	// KindVariable is a field, enum constant, parameter or local variable.
	KindVariable Kind = 1 << 2

	// KindTypeVariable is a declared type parameter, e.g. T in Box<T>.
	KindTypeVariable Kind = 1 << 3

	// KindMethod is a method or constructor.
	KindMethod Kind = 1 << 4

	// KindErroneous marks a malformed or unresolved reference.
	KindErroneous Kind = 1 << 6

	// KindAmbiguous marks a reference with several equally valid bindings.
	KindAmbiguous Kind = 1 << 7

	// KindAbsent marks a name that was looked up but has no binding.
	KindAbsent Kind = 1 << 8
)

// kindSentinels is the union of all "don't know" kinds.
const kindSentinels = KindErroneous | KindAmbiguous | KindAbsent

var kindNames = []struct {
	kind Kind
	name string
}{
	{KindPackage, "package"},
	{KindType, "type"},
	{KindVariable, "variable"},
	{KindTypeVariable, "type_variable"},
	{KindMethod, "method"},
	{KindErroneous, "erroneous"},
	{KindAmbiguous, "ambiguous"},
	{KindAbsent, "absent"},
}

// String returns the lower-case kind name, joining multiple bits with "|".
func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	parts := make([]string, 0, 1)
	for _, kn := range kindNames {
		if k&kn.kind != 0 {
			parts = append(parts, kn.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// Flags is the modifier bitmask of a Symbol.
type Flags uint64

const (
	FlagPublic Flags = 1 << iota
	FlagPrivate
	FlagProtected
	FlagStatic
	FlagFinal
	FlagSynchronized
	FlagVolatile
	FlagTransient
	FlagNative
	FlagInterface
	FlagAbstract
	FlagStrictFP
	FlagAnnotation
	FlagEnum
	FlagDeprecated
	FlagVarArgs
	FlagDefault
	FlagRecord
)

// accessFlags are the explicit visibility modifiers.
const accessFlags = FlagPublic | FlagPrivate | FlagProtected

var modifierFlags = map[string]Flags{
	"public":       FlagPublic,
	"private":      FlagPrivate,
	"protected":    FlagProtected,
	"static":       FlagStatic,
	"final":        FlagFinal,
	"synchronized": FlagSynchronized,
	"volatile":     FlagVolatile,
	"transient":    FlagTransient,
	"native":       FlagNative,
	"abstract":     FlagAbstract,
	"strictfp":     FlagStrictFP,
	"default":      FlagDefault,
}

// FlagsFromModifiers converts source modifier keywords to Flags.
//
// Unknown keywords (sealed, non-sealed, annotations) are ignored.
func FlagsFromModifiers(keywords []string) Flags {
	var f Flags
	for _, kw := range keywords {
		f |= modifierFlags[kw]
	}
	return f
}

// Has reports whether every bit of other is set.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// Visibility returns "public", "protected", "private" or "package".
func (f Flags) Visibility() string {
	switch {
	case f&FlagPublic != 0:
		return "public"
	case f&FlagProtected != 0:
		return "protected"
	case f&FlagPrivate != 0:
		return "private"
	default:
		return "package"
	}
}
