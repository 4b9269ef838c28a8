// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides a concurrency-safe lookup index over the symbols
// of an analysis, for serving queries after the single-threaded symbol
// table has been resolved.
package index

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidEntry indicates an entry failed validation.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrDuplicateEntry indicates an entry with the same ID already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrMaxEntriesExceeded indicates the index is at capacity.
	ErrMaxEntriesExceeded = errors.New("max entries exceeded")
)

// BatchError collects every problem found while validating a batch.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d batch errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// Kind is the category of an indexed symbol.
type Kind string

const (
	KindClass       Kind = "class"
	KindInterface   Kind = "interface"
	KindEnum        Kind = "enum"
	KindRecord      Kind = "record"
	KindAnnotation  Kind = "annotation"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
	KindField       Kind = "field"
)

var validKinds = map[Kind]bool{
	KindClass: true, KindInterface: true, KindEnum: true, KindRecord: true,
	KindAnnotation: true, KindMethod: true, KindConstructor: true, KindField: true,
}

// IsType reports whether k names a type declaration.
func (k Kind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindEnum, KindRecord, KindAnnotation:
		return true
	}
	return false
}

// Entry is an immutable, self-contained description of one symbol.
type Entry struct {
	// ID is unique within an analysis: the FQN for types, "Owner#name"
	// for fields and "Owner#name(params)" for methods.
	ID string `json:"id"`

	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Package  string `json:"package"`
	Owner    string `json:"owner,omitempty"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line,omitempty"`

	// Visibility is public, protected, private or package.
	Visibility string `json:"visibility"`

	// Signature is the rendered type: a method signature or a field type.
	Signature string `json:"signature,omitempty"`

	// Overridden is true, false or unknown for methods, empty otherwise.
	Overridden string `json:"overridden,omitempty"`
}

// Validate checks required fields.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return errors.New("id is empty")
	}
	if e.Name == "" {
		return errors.New("name is empty")
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.FilePath == "" {
		return errors.New("file path is empty")
	}
	return nil
}
