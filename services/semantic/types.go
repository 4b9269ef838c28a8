// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package semantic

import (
	"github.com/AleutianAI/semantic/services/semantic/index"
	"github.com/AleutianAI/semantic/services/semantic/report"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AnalyzeRequest is the body of POST /v1/semantic/analyze.
type AnalyzeRequest struct {
	// ProjectRoot is the directory to walk, or a label for inline Files.
	ProjectRoot string `json:"project_root" binding:"required_without=Files"`

	// Files are analyzed in memory instead of walking ProjectRoot.
	Files []report.SourceFile `json:"files" binding:"omitempty,dive"`

	// SaveSnapshot also persists the report.
	SaveSnapshot bool   `json:"save_snapshot"`
	Label        string `json:"label"`
}

// AnalyzeResponse summarizes a finished analysis.
type AnalyzeResponse struct {
	ReportID    string             `json:"report_id"`
	ProjectRoot string             `json:"project_root"`
	Hash        string             `json:"hash"`
	Stats       report.Stats       `json:"stats"`
	FileErrors  []report.FileError `json:"file_errors,omitempty"`
	SnapshotID  string             `json:"snapshot_id,omitempty"`
}

// ClassResponse is the body of GET /v1/semantic/classes/:fqn.
type ClassResponse struct {
	ReportID string              `json:"report_id"`
	Class    *report.ClassReport `json:"class"`
}

// SearchResponse is the body of GET /v1/semantic/symbols/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []*index.Entry `json:"results"`
}

// SaveSnapshotRequest is the body of POST /v1/semantic/snapshots.
type SaveSnapshotRequest struct {
	// ProjectRoot selects the project; empty means the latest analyzed.
	ProjectRoot string `json:"project_root"`
	Label       string `json:"label"`
}

// SaveSnapshotResponse describes a saved snapshot.
type SaveSnapshotResponse struct {
	Metadata *report.SnapshotMetadata `json:"metadata"`
}

// ListSnapshotsResponse is the body of GET /v1/semantic/snapshots.
type ListSnapshotsResponse struct {
	Snapshots []*report.SnapshotMetadata `json:"snapshots"`
}

// LoadSnapshotResponse is the body of GET /v1/semantic/snapshots/:id.
type LoadSnapshotResponse struct {
	Metadata *report.SnapshotMetadata `json:"metadata"`
	Report   *report.Report           `json:"report"`
}

// SnapshotDiffResponse is the body of GET /v1/semantic/snapshots/diff.
type SnapshotDiffResponse struct {
	Diff *report.ReportDiff `json:"diff"`
}

// HealthResponse is the body of GET /v1/semantic/health.
type HealthResponse struct {
	Status           string   `json:"status"`
	Projects         []string `json:"projects"`
	SnapshotsEnabled bool     `json:"snapshots_enabled"`
}
