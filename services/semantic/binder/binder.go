// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package binder turns parsed Java compilation units into a resolved symbol
// table.
//
// Binding runs in two steps. The enter phase creates a package symbol per
// package and a class symbol per (nested) type declaration, each carrying a
// lazy completer. Completion, triggered by the first query that needs
// hierarchy data, creates type variables, resolves bounds and supertypes,
// and populates the member scope with fields, methods and nested types.
package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/semantic/services/semantic/ast"
	"github.com/AleutianAI/semantic/services/semantic/resolve"
)

// ErrNilUnit is returned when a nil compilation unit is passed to Bind.
var ErrNilUnit = errors.New("nil compilation unit")

const (
	// ObjectFQN is the root of the class hierarchy.
	ObjectFQN = "java.lang.Object"

	enumFQN   = "java.lang.Enum"
	recordFQN = "java.lang.Record"
	stringFQN = "java.lang.String"

	// ConstructorName is the member name constructors are entered under.
	ConstructorName = "<init>"
)

// Options configures Binder behavior.
type Options struct {
	// ImplicitImports are packages imported on demand by every unit.
	// Default: java.lang
	ImplicitImports []string

	// Logger receives debug output for unresolved references.
	Logger *slog.Logger
}

// Option is a functional option for configuring Binder.
type Option func(*Options)

// WithImplicitImports replaces the implicit import list.
func WithImplicitImports(pkgs []string) Option {
	return func(o *Options) {
		o.ImplicitImports = append([]string(nil), pkgs...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// Binder builds symbol tables from compilation units.
//
// Thread Safety:
//
//	Binder is safe for concurrent use; each Bind call works on its own
//	Table. The returned Table must then be used by one goroutine at a time.
type Binder struct {
	options Options
}

// NewBinder creates a Binder with the given options.
func NewBinder(opts ...Option) *Binder {
	options := Options{
		ImplicitImports: []string{"java.lang"},
		Logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Binder{options: options}
}

// FileError records a problem with one compilation unit.
type FileError struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// UnresolvedRef is a type name that resolved to the Unknown type.
type UnresolvedRef struct {
	FilePath string `json:"file_path"`
	Name     string `json:"name"`

	// Context names the declaration that used the reference.
	Context string `json:"context"`
}

// Stats summarizes a bind.
type Stats struct {
	Units         int   `json:"units"`
	BuiltinUnits  int   `json:"builtin_units"`
	Classes       int   `json:"classes"`
	DurationMilli int64 `json:"duration_ms"`
}

// ClassInfo ties a class symbol to the declaration it came from.
type ClassInfo struct {
	Symbol   *resolve.Symbol
	Decl     *ast.TypeDecl
	FilePath string
	Builtin  bool

	unit     *unitEnv
	outer    *ClassInfo
	nested   map[string]*ClassInfo
	typeVars map[string]*resolve.Type

	// hierarchyReady is set once supertypes are attached during completion.
	hierarchyReady bool
}

// FQN returns the fully qualified name of the class.
func (c *ClassInfo) FQN() string {
	return c.Symbol.FullyQualifiedName()
}

// Result is the outcome of one Bind call.
type Result struct {
	// Table owns every symbol and type created by the bind.
	Table *resolve.Table

	// Classes are the project classes (builtins excluded) in declaration
	// order, nested classes following their enclosing class.
	Classes []*ClassInfo

	// FileErrors lists units that were skipped in part or whole.
	FileErrors []FileError

	Stats Stats

	state *bindState
}

// Lookup returns the class with the given fully qualified name.
func (r *Result) Lookup(fqn string) (*ClassInfo, bool) {
	info, ok := r.state.classes[fqn]
	return info, ok
}

// ClassOf returns the ClassInfo behind a class symbol.
func (r *Result) ClassOf(sym *resolve.Symbol) (*ClassInfo, bool) {
	info, ok := r.state.bySymbol[sym]
	return info, ok
}

// CompleteAll forces completion of every project class.
func (r *Result) CompleteAll() {
	for _, c := range r.Classes {
		c.Symbol.Complete()
	}
}

// Unresolved returns the references that failed to resolve so far. Classes
// resolve lazily, so call CompleteAll first for a full list.
func (r *Result) Unresolved() []UnresolvedRef {
	out := make([]UnresolvedRef, len(r.state.unresolved))
	copy(out, r.state.unresolved)
	return out
}

// bindState is shared by the enter phase and every completer of one bind.
type bindState struct {
	table    *resolve.Table
	logger   *slog.Logger
	implicit []string
	classes  map[string]*ClassInfo
	bySymbol map[*resolve.Symbol]*ClassInfo

	unresolved []UnresolvedRef
}

// unitEnv is the import context of one compilation unit.
type unitEnv struct {
	filePath string
	pkg      *resolve.Symbol
	pkgName  string

	// single maps simple name to the imported FQN.
	single map[string]string

	// onDemand holds package or type names imported with ".*".
	onDemand []string
}

// Bind enters every unit and returns a table whose classes complete lazily.
//
// Description:
//
//	builtins are bound first and are excluded from Result.Classes. A type
//	declared twice under the same fully qualified name keeps its first
//	declaration; later ones are reported in FileErrors.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between units.
//	builtins - Platform stub units, typically from ParseBuiltins.
//	units - Project units.
//
// Outputs:
//
//	*Result - The bound table. Never nil when error is nil.
//	error - ErrNilUnit for nil entries, or the context error.
func (b *Binder) Bind(ctx context.Context, builtins, units []*ast.CompilationUnit) (*Result, error) {
	ctx, span := startBindSpan(ctx, len(builtins), len(units))
	defer span.End()

	start := time.Now()
	state := &bindState{
		table:    resolve.NewTable(),
		logger:   b.options.Logger,
		implicit: b.options.ImplicitImports,
		classes:  make(map[string]*ClassInfo),
		bySymbol: make(map[*resolve.Symbol]*ClassInfo),
	}
	result := &Result{Table: state.table, state: state}

	enter := func(list []*ast.CompilationUnit, builtin bool) error {
		for i, unit := range list {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("bind canceled: %w", err)
			}
			if unit == nil {
				return fmt.Errorf("%w at index %d", ErrNilUnit, i)
			}
			env := state.newUnitEnv(unit)
			for _, decl := range unit.Types {
				info, err := state.enterClass(decl, env, nil, builtin)
				if err != nil {
					result.FileErrors = append(result.FileErrors, FileError{FilePath: unit.FilePath, Message: err.Error()})
					continue
				}
				if !builtin {
					result.Classes = appendTree(result.Classes, info)
				}
			}
		}
		return nil
	}

	if err := enter(builtins, true); err != nil {
		recordBindFailure(span, err)
		return nil, err
	}
	if err := enter(units, false); err != nil {
		recordBindFailure(span, err)
		return nil, err
	}

	result.Stats = Stats{
		Units:         len(units),
		BuiltinUnits:  len(builtins),
		Classes:       len(result.Classes),
		DurationMilli: time.Since(start).Milliseconds(),
	}
	setBindSpanResult(span, result.Stats.Classes, len(result.FileErrors))
	classesBound.Add(float64(result.Stats.Classes))

	return result, nil
}

func appendTree(out []*ClassInfo, info *ClassInfo) []*ClassInfo {
	out = append(out, info)
	for _, n := range info.Decl.Nested {
		if child, ok := info.nested[n.Name]; ok && child.Decl == n {
			out = appendTree(out, child)
		}
	}
	return out
}

func (s *bindState) newUnitEnv(unit *ast.CompilationUnit) *unitEnv {
	env := &unitEnv{
		filePath: unit.FilePath,
		pkgName:  unit.Package,
		single:   make(map[string]string),
	}
	if unit.Package == "" {
		env.pkg = s.table.Root()
	} else {
		env.pkg = s.table.Package(unit.Package)
	}
	for _, imp := range unit.Imports {
		switch {
		case imp.Static && imp.OnDemand:
			// Static on-demand imports bring members of a type; its nested
			// types are visible the same way as a type-import-on-demand.
			env.onDemand = append(env.onDemand, imp.Name)
		case imp.Static:
			// Static single imports name members, possibly a nested type.
			env.single[simpleName(imp.Name)] = imp.Name
		case imp.OnDemand:
			env.onDemand = append(env.onDemand, imp.Name)
		default:
			env.single[simpleName(imp.Name)] = imp.Name
		}
	}
	return env
}

// enterClass creates the class symbol for decl and its nested types.
func (s *bindState) enterClass(decl *ast.TypeDecl, env *unitEnv, outer *ClassInfo, builtin bool) (*ClassInfo, error) {
	owner := env.pkg
	if outer != nil {
		owner = outer.Symbol
	}
	fqn := decl.Name
	switch {
	case outer != nil:
		fqn = outer.FQN() + "." + decl.Name
	case env.pkgName != "":
		fqn = env.pkgName + "." + decl.Name
	}
	if prev, dup := s.classes[fqn]; dup {
		return nil, fmt.Errorf("duplicate type %s (first declared in %s)", fqn, prev.FilePath)
	}
	sym := s.table.NewClass(0, decl.Name, owner)

	info := &ClassInfo{
		Symbol:   sym,
		Decl:     decl,
		FilePath: env.filePath,
		Builtin:  builtin,
		unit:     env,
		outer:    outer,
		nested:   make(map[string]*ClassInfo),
		typeVars: make(map[string]*resolve.Type),
	}
	s.classes[fqn] = info
	s.bySymbol[sym] = info
	if outer == nil {
		env.pkg.Members().Enter(sym)
	}

	sym.SetCompleter(resolve.CompleterFunc(func(*resolve.Symbol) {
		s.completeClass(info)
	}))

	for _, n := range decl.Nested {
		child, err := s.enterClass(n, env, info, builtin)
		if err != nil {
			s.logger.Warn("skipping nested type",
				slog.String("file", env.filePath),
				slog.String("error", err.Error()))
			continue
		}
		info.nested[n.Name] = child
	}
	return info, nil
}

// recordUnresolved notes a failed reference and returns the Unknown type.
func (s *bindState) recordUnresolved(c *ClassInfo, name, context string) *resolve.Type {
	s.unresolved = append(s.unresolved, UnresolvedRef{
		FilePath: c.FilePath,
		Name:     name,
		Context:  context,
	})
	unresolvedRefs.Inc()
	s.logger.Debug("unresolved type reference",
		slog.String("file", c.FilePath),
		slog.String("name", name),
		slog.String("context", context))
	return s.table.UnknownType()
}

func simpleName(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			return dotted[i+1:]
		}
	}
	return dotted
}
