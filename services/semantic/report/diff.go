// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"sort"
)

// ReportDiff describes how a target report differs from a base report.
type ReportDiff struct {
	BaseID   string `json:"base_id"`
	TargetID string `json:"target_id"`

	// ClassesAdded are FQNs present in target but not in base.
	ClassesAdded []string `json:"classes_added"`

	// ClassesRemoved are FQNs present in base but not in target.
	ClassesRemoved []string `json:"classes_removed"`

	// MethodsAdded are method IDs present in target but not in base.
	MethodsAdded []string `json:"methods_added"`

	// MethodsRemoved are method IDs present in base but not in target.
	MethodsRemoved []string `json:"methods_removed"`

	// OverrideChanges lists methods present in both whose override status
	// changed, for example after a supertype gained or lost a method.
	OverrideChanges []OverrideChange `json:"override_changes"`

	// HierarchyChanges lists classes whose superclass or interfaces changed.
	HierarchyChanges []string `json:"hierarchy_changes"`

	Summary DiffSummary `json:"summary"`
}

// OverrideChange is one method whose override status changed.
type OverrideChange struct {
	MethodID string `json:"method_id"`
	Before   string `json:"before"`
	After    string `json:"after"`
}

// DiffSummary aggregates a ReportDiff.
type DiffSummary struct {
	// TotalChanges counts every entry across the diff lists.
	TotalChanges int `json:"total_changes"`

	// FilesAffected is the number of distinct files with a changed class
	// or method.
	FilesAffected int `json:"files_affected"`

	// ChangeRatio is changed methods over the larger method count (0.0 to 1.0).
	ChangeRatio float64 `json:"change_ratio"`
}

type methodRef struct {
	method *MethodReport
	file   string
}

// DiffReports compares two reports.
//
// Description:
//
//	Classes are matched by FQN and methods by ID. The override status of a
//	method present in both reports is compared as a string, so a change
//	from "unknown" to "true" after a missing dependency was added shows up
//	as an OverrideChange. All lists are sorted for deterministic output.
//
// Inputs:
//
//	base - The earlier report. Must not be nil.
//	target - The later report. Must not be nil.
//
// Outputs:
//
//	*ReportDiff - The differences.
//	error - Non-nil if either report is nil.
func DiffReports(base, target *Report) (*ReportDiff, error) {
	if base == nil {
		return nil, fmt.Errorf("base report must not be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target report must not be nil")
	}

	diff := &ReportDiff{
		BaseID:           base.ID,
		TargetID:         target.ID,
		ClassesAdded:     []string{},
		ClassesRemoved:   []string{},
		MethodsAdded:     []string{},
		MethodsRemoved:   []string{},
		OverrideChanges:  []OverrideChange{},
		HierarchyChanges: []string{},
	}
	affectedFiles := make(map[string]bool)

	baseClasses := classMap(base)
	targetClasses := classMap(target)
	for fqn, tc := range targetClasses {
		bc, ok := baseClasses[fqn]
		if !ok {
			diff.ClassesAdded = append(diff.ClassesAdded, fqn)
			affectedFiles[tc.FilePath] = true
			continue
		}
		if bc.Superclass != tc.Superclass || !stringsEqual(bc.Interfaces, tc.Interfaces) {
			diff.HierarchyChanges = append(diff.HierarchyChanges, fqn)
			affectedFiles[tc.FilePath] = true
		}
	}
	for fqn, bc := range baseClasses {
		if _, ok := targetClasses[fqn]; !ok {
			diff.ClassesRemoved = append(diff.ClassesRemoved, fqn)
			affectedFiles[bc.FilePath] = true
		}
	}

	baseMethods := methodMap(base)
	targetMethods := methodMap(target)
	for id, tm := range targetMethods {
		bm, ok := baseMethods[id]
		if !ok {
			diff.MethodsAdded = append(diff.MethodsAdded, id)
			affectedFiles[tm.file] = true
			continue
		}
		if bm.method.Overridden != tm.method.Overridden {
			diff.OverrideChanges = append(diff.OverrideChanges, OverrideChange{
				MethodID: id,
				Before:   bm.method.Overridden,
				After:    tm.method.Overridden,
			})
			affectedFiles[tm.file] = true
		}
	}
	for id, bm := range baseMethods {
		if _, ok := targetMethods[id]; !ok {
			diff.MethodsRemoved = append(diff.MethodsRemoved, id)
			affectedFiles[bm.file] = true
		}
	}

	sort.Strings(diff.ClassesAdded)
	sort.Strings(diff.ClassesRemoved)
	sort.Strings(diff.MethodsAdded)
	sort.Strings(diff.MethodsRemoved)
	sort.Strings(diff.HierarchyChanges)
	sort.Slice(diff.OverrideChanges, func(i, j int) bool {
		return diff.OverrideChanges[i].MethodID < diff.OverrideChanges[j].MethodID
	})

	totalMethods := max(len(baseMethods), len(targetMethods))
	changeRatio := 0.0
	if totalMethods > 0 {
		changed := len(diff.MethodsAdded) + len(diff.MethodsRemoved) + len(diff.OverrideChanges)
		changeRatio = min(1.0, float64(changed)/float64(totalMethods))
	}
	diff.Summary = DiffSummary{
		TotalChanges: len(diff.ClassesAdded) + len(diff.ClassesRemoved) +
			len(diff.MethodsAdded) + len(diff.MethodsRemoved) +
			len(diff.OverrideChanges) + len(diff.HierarchyChanges),
		FilesAffected: len(affectedFiles),
		ChangeRatio:   changeRatio,
	}
	return diff, nil
}

func classMap(r *Report) map[string]*ClassReport {
	m := make(map[string]*ClassReport, len(r.Classes))
	for i := range r.Classes {
		m[r.Classes[i].FQN] = &r.Classes[i]
	}
	return m
}

func methodMap(r *Report) map[string]methodRef {
	m := make(map[string]methodRef)
	for i := range r.Classes {
		c := &r.Classes[i]
		for j := range c.Methods {
			m[c.Methods[j].ID] = methodRef{method: &c.Methods[j], file: c.FilePath}
		}
	}
	return m
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
