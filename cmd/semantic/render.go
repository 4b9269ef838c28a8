// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/semantic/services/semantic/report"
)

// maxListed caps unresolved references and file errors in text output.
const maxListed = 10

type styles struct {
	title     lipgloss.Style
	class     lipgloss.Style
	dim       lipgloss.Style
	overrides lipgloss.Style
	unknown   lipgloss.Style
	problem   lipgloss.Style
}

// newStyles returns coloured styles when w is a terminal and plain ones
// otherwise.
func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		class:     lipgloss.NewStyle().Bold(true),
		dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		overrides: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		unknown:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		problem:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// statusMarker maps an override status to a one-word marker.
func statusMarker(status string) string {
	switch status {
	case "true":
		return "overrides"
	case "false":
		return "-"
	case "unknown":
		return "unknown"
	default:
		return status
	}
}

// renderReport prints a human-readable report. Without all, methods that
// neither override nor are undecidable are left out.
func renderReport(w io.Writer, rep *report.Report, st styles, all bool) {
	s := rep.Stats
	fmt.Fprintln(w, st.title.Render("Semantic report")+" "+st.dim.Render(rep.ProjectRoot))
	fmt.Fprintf(w, "  files %d  classes %d  methods %d  overriding %d  not overriding %d  unknown %d  unresolved %d  (%d ms)\n\n",
		s.Files, s.Classes, s.Methods, s.Overriding, s.NotOverriding, s.Unknown, s.Unresolved, s.DurationMilli)

	for _, c := range rep.Classes {
		var methods []report.MethodReport
		for _, m := range c.Methods {
			if all || m.Overridden == "true" || m.Overridden == "unknown" {
				methods = append(methods, m)
			}
		}
		if len(methods) == 0 && !all {
			continue
		}

		header := c.Kind + " " + c.FQN
		if c.Superclass != "" && c.Kind == "class" {
			header += " extends " + c.Superclass
		}
		if len(c.Interfaces) > 0 {
			keyword := " implements "
			if c.Kind == "interface" {
				keyword = " extends "
			}
			header += keyword + strings.Join(c.Interfaces, ", ")
		}
		fmt.Fprintf(w, "%s %s\n", st.class.Render(header), st.dim.Render(fmt.Sprintf("%s:%d", c.FilePath, c.Line)))

		for _, m := range methods {
			marker := statusMarker(m.Overridden)
			switch m.Overridden {
			case "true":
				marker = st.overrides.Render(marker)
			case "unknown":
				marker = st.unknown.Render(marker)
			default:
				marker = st.dim.Render(marker)
			}
			fmt.Fprintf(w, "  %-10s %s\n", marker, m.Signature)
		}
	}

	if len(rep.Unresolved) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.unknown.Render(fmt.Sprintf("Unresolved references (%d)", len(rep.Unresolved))))
		for i, u := range rep.Unresolved {
			if i == maxListed {
				fmt.Fprintf(w, "  ... %d more\n", len(rep.Unresolved)-maxListed)
				break
			}
			fmt.Fprintf(w, "  %s in %s (%s)\n", u.Name, u.Context, u.FilePath)
		}
	}
	if len(rep.FileErrors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.problem.Render(fmt.Sprintf("File errors (%d)", len(rep.FileErrors))))
		for i, fe := range rep.FileErrors {
			if i == maxListed {
				fmt.Fprintf(w, "  ... %d more\n", len(rep.FileErrors)-maxListed)
				break
			}
			fmt.Fprintf(w, "  %s: %s\n", fe.FilePath, fe.Message)
		}
	}
}

// renderDiff prints the changes between two reports.
func renderDiff(w io.Writer, diff *report.ReportDiff, st styles) {
	fmt.Fprintln(w, st.title.Render("Changes")+" "+st.dim.Render(diff.BaseID+" -> "+diff.TargetID))
	if diff.Summary.TotalChanges == 0 {
		fmt.Fprintln(w, "  no changes")
		return
	}
	list := func(label string, items []string) {
		for _, item := range items {
			fmt.Fprintf(w, "  %-18s %s\n", label, item)
		}
	}
	list("class added", diff.ClassesAdded)
	list("class removed", diff.ClassesRemoved)
	list("hierarchy changed", diff.HierarchyChanges)
	list("method added", diff.MethodsAdded)
	list("method removed", diff.MethodsRemoved)
	for _, oc := range diff.OverrideChanges {
		fmt.Fprintf(w, "  %-18s %s: %s -> %s\n", "override changed", oc.MethodID,
			statusMarker(oc.Before), statusMarker(oc.After))
	}
	fmt.Fprintf(w, "  %d changes in %d files (%.0f%% of methods)\n",
		diff.Summary.TotalChanges, diff.Summary.FilesAffected, diff.Summary.ChangeRatio*100)
}
