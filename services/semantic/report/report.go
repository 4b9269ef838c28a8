// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report runs whole-project analyses and turns the resolved symbol
// table into a serializable override report, with BadgerDB snapshots and
// report diffs.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/AleutianAI/semantic/services/semantic/binder"
	"github.com/AleutianAI/semantic/services/semantic/index"
	"github.com/AleutianAI/semantic/services/semantic/resolve"
)

// SchemaVersion is the version of the serialized Report layout.
const SchemaVersion = "1"

// OverrideNotApplicable is the override status of constructors.
const OverrideNotApplicable = "n/a"

// Report is the result of one analysis.
type Report struct {
	// ID identifies the analysis; snapshots reuse it.
	ID string `json:"id"`

	ProjectRoot    string `json:"project_root"`
	CreatedAtMilli int64  `json:"created_at_milli"`
	SchemaVersion  string `json:"schema_version"`

	// Hash covers Classes only, so two analyses of identical code match.
	Hash string `json:"hash"`

	Classes    []ClassReport          `json:"classes"`
	FileErrors []FileError            `json:"file_errors,omitempty"`
	Unresolved []binder.UnresolvedRef `json:"unresolved,omitempty"`
	Stats      Stats                  `json:"stats"`
}

// ClassReport describes one project type.
type ClassReport struct {
	FQN        string   `json:"fqn"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Package    string   `json:"package"`
	Outer      string   `json:"outer,omitempty"`
	FilePath   string   `json:"file_path"`
	Line       int      `json:"line"`
	Visibility string   `json:"visibility"`
	Modifiers  []string `json:"modifiers,omitempty"`

	TypeParameters []string `json:"type_parameters,omitempty"`
	Superclass     string   `json:"superclass,omitempty"`
	Interfaces     []string `json:"interfaces,omitempty"`

	// SuperTypes is the full ancestor closure, sorted.
	SuperTypes []string `json:"super_types,omitempty"`

	Annotations []string       `json:"annotations,omitempty"`
	Fields      []FieldReport  `json:"fields,omitempty"`
	Methods     []MethodReport `json:"methods,omitempty"`
}

// MethodReport describes one method or constructor.
type MethodReport struct {
	// ID is "Owner#name(paramTypes)".
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Signature   string   `json:"signature"`
	Constructor bool     `json:"constructor,omitempty"`
	Visibility  string   `json:"visibility"`
	Modifiers   []string `json:"modifiers,omitempty"`
	Annotations []string `json:"annotations,omitempty"`

	// Overridden is "true", "false", "unknown", or "n/a" for constructors.
	Overridden string `json:"overridden"`
}

// FieldReport describes one field or enum constant.
type FieldReport struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Visibility string   `json:"visibility"`
	Modifiers  []string `json:"modifiers,omitempty"`
}

// FileError records a file that could not be analyzed fully.
type FileError struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// Stats summarizes a report.
type Stats struct {
	Files         int   `json:"files"`
	Classes       int   `json:"classes"`
	Methods       int   `json:"methods"`
	Overriding    int   `json:"overriding"`
	NotOverriding int   `json:"not_overriding"`
	Unknown       int   `json:"unknown"`
	Unresolved    int   `json:"unresolved"`
	FileErrors    int   `json:"file_errors"`
	DurationMilli int64 `json:"duration_ms"`
}

// Class returns the class report with the given FQN.
func (r *Report) Class(fqn string) (*ClassReport, bool) {
	for i := range r.Classes {
		if r.Classes[i].FQN == fqn {
			return &r.Classes[i], true
		}
	}
	return nil, false
}

// Build turns a bound result into class reports, completing every class
// and resolving the override status of every method.
//
// Description:
//
//	Must run on the goroutine that owns result.Table. Members are listed
//	in member-scope order: enum constants, record components, declared
//	fields and methods, then implicit members.
func Build(result *binder.Result) []ClassReport {
	result.CompleteAll()

	classes := make([]ClassReport, 0, len(result.Classes))
	for _, info := range result.Classes {
		classes = append(classes, buildClass(info))
	}
	return classes
}

func buildClass(info *binder.ClassInfo) ClassReport {
	sym := info.Symbol
	cr := ClassReport{
		FQN:         sym.FullyQualifiedName(),
		Name:        sym.Name(),
		Kind:        string(info.Decl.Kind),
		Package:     sym.Package().FullyQualifiedName(),
		FilePath:    info.FilePath,
		Line:        info.Decl.Location.StartLine,
		Visibility:  sym.Flags().Visibility(),
		Modifiers:   modifierNames(sym.Flags()),
		Annotations: sym.Metadata().Annotations(),
	}
	if owner := sym.Owner(); owner.IsTypeSymbol() {
		cr.Outer = owner.FullyQualifiedName()
	}
	for _, tv := range sym.TypeVariableTypes() {
		cr.TypeParameters = append(cr.TypeParameters, typeParameterString(tv))
	}
	if super := sym.Superclass(); super != nil {
		cr.Superclass = super.String()
	}
	for _, iface := range sym.Interfaces() {
		cr.Interfaces = append(cr.Interfaces, iface.String())
	}
	for _, st := range sym.SuperTypes() {
		cr.SuperTypes = append(cr.SuperTypes, st.String())
	}
	sort.Strings(cr.SuperTypes)

	for _, m := range sym.Members().Symbols() {
		switch {
		case m.IsMethodSymbol():
			cr.Methods = append(cr.Methods, buildMethod(cr.FQN, sym.Name(), m))
		case m.IsVariableSymbol():
			cr.Fields = append(cr.Fields, FieldReport{
				Name:       m.Name(),
				Type:       m.Type().String(),
				Visibility: m.Flags().Visibility(),
				Modifiers:  modifierNames(m.Flags()),
			})
		}
	}
	return cr
}

func buildMethod(owner, className string, m *resolve.Symbol) MethodReport {
	params := make([]string, 0, len(m.ParameterTypes()))
	for _, p := range m.ParameterTypes() {
		params = append(params, p.String())
	}
	paramList := strings.Join(params, ", ")

	mr := MethodReport{
		ID:          owner + "#" + m.Name() + "(" + strings.Join(params, ",") + ")",
		Name:        m.Name(),
		Visibility:  m.Flags().Visibility(),
		Modifiers:   modifierNames(m.Flags()),
		Annotations: m.Metadata().Annotations(),
	}
	if m.Name() == binder.ConstructorName {
		mr.Constructor = true
		mr.Signature = className + "(" + paramList + ")"
		mr.Overridden = OverrideNotApplicable
		return mr
	}
	mr.Signature = m.Type().ResultType().String() + " " + m.Name() + "(" + paramList + ")"
	mr.Overridden = m.IsOverridden().String()
	return mr
}

func typeParameterString(tv *resolve.Type) string {
	name := tv.String()
	bounds := tv.Bounds()
	if len(bounds) == 0 || (len(bounds) == 1 && bounds[0].String() == binder.ObjectFQN) {
		return name
	}
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		parts[i] = b.String()
	}
	return name + " extends " + strings.Join(parts, " & ")
}

var modifierOrder = []struct {
	flag resolve.Flags
	name string
}{
	{resolve.FlagAbstract, "abstract"},
	{resolve.FlagStatic, "static"},
	{resolve.FlagFinal, "final"},
	{resolve.FlagDefault, "default"},
	{resolve.FlagSynchronized, "synchronized"},
	{resolve.FlagNative, "native"},
	{resolve.FlagVolatile, "volatile"},
	{resolve.FlagTransient, "transient"},
	{resolve.FlagVarArgs, "varargs"},
	{resolve.FlagDeprecated, "deprecated"},
}

// modifierNames lists non-visibility modifiers in a fixed order.
func modifierNames(f resolve.Flags) []string {
	var out []string
	for _, m := range modifierOrder {
		if f&m.flag != 0 {
			out = append(out, m.name)
		}
	}
	return out
}

// computeStats fills the counts derivable from the report contents.
func computeStats(r *Report, files int) Stats {
	s := Stats{
		Files:      files,
		Classes:    len(r.Classes),
		Unresolved: len(r.Unresolved),
		FileErrors: len(r.FileErrors),
	}
	for _, c := range r.Classes {
		for _, m := range c.Methods {
			s.Methods++
			switch m.Overridden {
			case resolve.TriTrue.String():
				s.Overriding++
			case resolve.TriFalse.String():
				s.NotOverriding++
			case resolve.TriUnknown.String():
				s.Unknown++
			}
		}
	}
	return s
}

// ReportHash returns a deterministic hash of the class reports.
func ReportHash(classes []ClassReport) string {
	data, err := json.Marshal(classes)
	if err != nil {
		return ""
	}
	return hashBytes(data)[:16]
}

// IndexEntries flattens a report into symbol index entries. When two
// entries share an ID the first is kept.
func IndexEntries(r *Report) []*index.Entry {
	var out []*index.Entry
	seen := make(map[string]bool)
	add := func(e *index.Entry) {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	for _, c := range r.Classes {
		add(&index.Entry{
			ID:         c.FQN,
			Name:       c.Name,
			Kind:       index.Kind(c.Kind),
			Package:    c.Package,
			Owner:      c.Outer,
			FilePath:   c.FilePath,
			Line:       c.Line,
			Visibility: c.Visibility,
		})
		for _, f := range c.Fields {
			add(&index.Entry{
				ID:         c.FQN + "#" + f.Name,
				Name:       f.Name,
				Kind:       index.KindField,
				Package:    c.Package,
				Owner:      c.FQN,
				FilePath:   c.FilePath,
				Visibility: f.Visibility,
				Signature:  f.Type,
			})
		}
		for _, m := range c.Methods {
			e := &index.Entry{
				ID:         m.ID,
				Name:       m.Name,
				Kind:       index.KindMethod,
				Package:    c.Package,
				Owner:      c.FQN,
				FilePath:   c.FilePath,
				Visibility: m.Visibility,
				Signature:  m.Signature,
				Overridden: m.Overridden,
			}
			if m.Constructor {
				e.Name = c.Name
				e.Kind = index.KindConstructor
			}
			add(e)
		}
	}
	return out
}

func hashString(s string) string {
	return hashBytes([]byte(s))
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
