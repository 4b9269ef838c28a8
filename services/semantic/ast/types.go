// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts Java declarations from source text.
//
// The parser is deliberately declaration-only: it records what the binder
// needs to build symbols (packages, imports, type declarations, members,
// signatures and modifiers) and skips method bodies.
package ast

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by JavaParser.Parse.
var (
	// ErrFileTooLarge indicates the content exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")
)

const (
	// DefaultMaxFileSize is the default parse limit (10 MiB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize triggers a warning log for large inputs (1 MiB).
	WarnFileSize = 1024 * 1024
)

// DeclKind is the flavour of a type declaration.
type DeclKind string

const (
	DeclClass      DeclKind = "class"
	DeclInterface  DeclKind = "interface"
	DeclEnum       DeclKind = "enum"
	DeclRecord     DeclKind = "record"
	DeclAnnotation DeclKind = "annotation"
)

// Location is a 1-based line span.
type Location struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// CompilationUnit is the declaration outline of one Java source file.
type CompilationUnit struct {
	// FilePath is the path the unit was parsed from, relative to the project root.
	FilePath string `json:"file_path"`

	// Package is the dotted package name; empty for the unnamed package.
	Package string `json:"package,omitempty"`

	// Imports in source order.
	Imports []Import `json:"imports,omitempty"`

	// Types are the top-level type declarations in source order.
	Types []*TypeDecl `json:"types,omitempty"`

	// Errors lists syntax problems. A unit with errors still carries
	// everything that could be extracted.
	Errors []string `json:"errors,omitempty"`

	// Hash is the SHA-256 of the content.
	Hash string `json:"hash"`

	// ParsedAtMilli is the parse time in Unix milliseconds.
	ParsedAtMilli int64 `json:"parsed_at_milli"`
}

// Import is one import declaration.
type Import struct {
	// Name is the dotted name without the trailing ".*".
	Name string `json:"name"`

	// Static marks "import static".
	Static bool `json:"static,omitempty"`

	// OnDemand marks a trailing ".*".
	OnDemand bool `json:"on_demand,omitempty"`

	Line int `json:"line"`
}

// TypeDecl is a class, interface, enum, record or annotation declaration.
type TypeDecl struct {
	Name        string      `json:"name"`
	Kind        DeclKind    `json:"kind"`
	Modifiers   []string    `json:"modifiers,omitempty"`
	Annotations []string    `json:"annotations,omitempty"`
	TypeParams  []TypeParam `json:"type_params,omitempty"`

	// Superclass is the extends clause of a class; nil otherwise.
	Superclass *TypeRef `json:"superclass,omitempty"`

	// Interfaces holds implements (classes, enums, records) or extends
	// (interfaces) clauses.
	Interfaces []*TypeRef `json:"interfaces,omitempty"`

	// RecordComponents are the header components of a record.
	RecordComponents []*ParamDecl `json:"record_components,omitempty"`

	EnumConstants []EnumConstant `json:"enum_constants,omitempty"`
	Fields        []*FieldDecl   `json:"fields,omitempty"`
	Methods       []*MethodDecl  `json:"methods,omitempty"`
	Nested        []*TypeDecl    `json:"nested,omitempty"`

	Location Location `json:"location"`
}

// HasModifier reports whether the keyword appears on the declaration.
func (d *TypeDecl) HasModifier(keyword string) bool {
	return hasString(d.Modifiers, keyword)
}

// TypeParam is a declared type parameter with its bounds.
type TypeParam struct {
	Name   string     `json:"name"`
	Bounds []*TypeRef `json:"bounds,omitempty"`
}

// EnumConstant is one constant of an enum declaration.
type EnumConstant struct {
	Name        string   `json:"name"`
	Annotations []string `json:"annotations,omitempty"`
	Line        int      `json:"line"`
}

// FieldDecl is one declarator of a field or interface constant declaration.
// "int a, b[];" yields two FieldDecls with their own types.
type FieldDecl struct {
	Name        string   `json:"name"`
	Type        *TypeRef `json:"type"`
	Modifiers   []string `json:"modifiers,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Line        int      `json:"line"`
}

// MethodDecl is a method, constructor or annotation element.
type MethodDecl struct {
	Name        string       `json:"name"`
	Constructor bool         `json:"constructor,omitempty"`
	Modifiers   []string     `json:"modifiers,omitempty"`
	Annotations []string     `json:"annotations,omitempty"`
	TypeParams  []TypeParam  `json:"type_params,omitempty"`
	Params      []*ParamDecl `json:"params,omitempty"`

	// Result is the declared return type; nil for constructors.
	Result *TypeRef   `json:"result,omitempty"`
	Throws []*TypeRef `json:"throws,omitempty"`

	// HasBody is false for abstract, native and interface methods.
	HasBody bool `json:"has_body,omitempty"`

	Location Location `json:"location"`
}

// HasModifier reports whether the keyword appears on the declaration.
func (m *MethodDecl) HasModifier(keyword string) bool {
	return hasString(m.Modifiers, keyword)
}

// IsVarArgs reports whether the last parameter is variable-arity.
func (m *MethodDecl) IsVarArgs() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1].VarArgs
}

// ParamDecl is a formal parameter or record component.
type ParamDecl struct {
	Name string `json:"name"`

	// Type includes array dimensions; for varargs the trailing "..." is
	// counted as one extra dimension.
	Type        *TypeRef `json:"type"`
	VarArgs     bool     `json:"varargs,omitempty"`
	Modifiers   []string `json:"modifiers,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
}

// WildcardBound is the bound direction of a wildcard argument.
type WildcardBound string

const (
	WildcardNone    WildcardBound = ""
	WildcardExtends WildcardBound = "extends"
	WildcardSuper   WildcardBound = "super"
)

// TypeRef is a type as written in source, unresolved.
type TypeRef struct {
	// Name is the dotted name as written ("List", "Map.Entry",
	// "java.util.List", "int"), or "?" for a wildcard.
	Name string `json:"name"`

	// Args are generic arguments in order.
	Args []*TypeRef `json:"args,omitempty"`

	// Dims is the number of array dimensions.
	Dims int `json:"dims,omitempty"`

	// Wildcard and Bound describe "? extends B" and "? super B".
	Wildcard WildcardBound `json:"wildcard,omitempty"`
	Bound    *TypeRef      `json:"bound,omitempty"`
}

// IsWildcard reports whether r is a "?" argument.
func (r *TypeRef) IsWildcard() bool {
	return r != nil && r.Name == "?"
}

// String renders r in Java syntax.
func (r *TypeRef) String() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.Name)
	if r.IsWildcard() && r.Bound != nil {
		fmt.Fprintf(&b, " %s %s", r.Wildcard, r.Bound.String())
	}
	if len(r.Args) > 0 {
		b.WriteByte('<')
		for i, a := range r.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte('>')
	}
	for i := 0; i < r.Dims; i++ {
		b.WriteString("[]")
	}
	return b.String()
}

// Validate checks structural invariants of a parsed unit.
func (u *CompilationUnit) Validate() error {
	if u.FilePath == "" {
		return fmt.Errorf("compilation unit has empty file path")
	}
	var check func(d *TypeDecl) error
	check = func(d *TypeDecl) error {
		if d.Name == "" {
			return fmt.Errorf("%s: type declaration without name at line %d", u.FilePath, d.Location.StartLine)
		}
		for _, m := range d.Methods {
			if m.Name == "" {
				return fmt.Errorf("%s: method without name in %s", u.FilePath, d.Name)
			}
		}
		for _, n := range d.Nested {
			if err := check(n); err != nil {
				return err
			}
		}
		return nil
	}
	for _, d := range u.Types {
		if err := check(d); err != nil {
			return err
		}
	}
	return nil
}

func hasString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
