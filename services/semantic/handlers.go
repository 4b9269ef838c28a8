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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/semantic/services/semantic/index"
	"github.com/AleutianAI/semantic/services/semantic/report"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// Handlers adapts a Service to gin.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RequestIDMiddleware makes sure every request carries an X-Request-ID and
// echoes it in the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := getOrCreateRequestID(c)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	return id
}

// HandleAnalyze handles POST /v1/semantic/analyze.
//
// Description:
//
//	Analyzes a project directory or inline sources and makes the result
//	the project's current state.
//
// Request Body:
//
//	AnalyzeRequest (project_root or files required)
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Invalid body or project root
//	500 Internal Server Error: Analysis failed
//	503 Service Unavailable: save_snapshot set without a snapshot store
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	state, meta, err := h.svc.Analyze(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrSnapshotsDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "SNAPSHOTS_NOT_AVAILABLE"})
		return
	case errors.Is(err, report.ErrInvalidRoot):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_PROJECT_ROOT"})
		return
	case err != nil && state == nil:
		logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "analysis failed: " + err.Error(),
			Code:  "ANALYSIS_FAILED",
		})
		return
	case err != nil:
		logger.Error("snapshot save failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "analysis succeeded but " + err.Error(),
			Code:  "SNAPSHOT_SAVE_FAILED",
		})
		return
	}

	rep := state.Report
	resp := AnalyzeResponse{
		ReportID:    rep.ID,
		ProjectRoot: rep.ProjectRoot,
		Hash:        rep.Hash,
		Stats:       rep.Stats,
		FileErrors:  rep.FileErrors,
	}
	if meta != nil {
		resp.SnapshotID = meta.SnapshotID
	}

	logger.Info("analysis served",
		slog.String("report_id", rep.ID),
		slog.Int("classes", rep.Stats.Classes))
	c.JSON(http.StatusOK, resp)
}

// HandleClass handles GET /v1/semantic/classes/:fqn.
//
// Query Parameters:
//
//	project_root: Optional; defaults to the most recently analyzed project
func (h *Handlers) HandleClass(c *gin.Context) {
	getOrCreateRequestID(c)

	state, ok := h.project(c)
	if !ok {
		return
	}
	fqn := c.Param("fqn")
	cls, found := state.Report.Class(fqn)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "class not found: " + fqn,
			Code:  "CLASS_NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, ClassResponse{ReportID: state.Report.ID, Class: cls})
}

// HandleSearch handles GET /v1/semantic/symbols/search.
//
// Query Parameters:
//
//	q: Search query (required)
//	limit: Maximum results, default 20, capped at 100
//	kind: Optional entry kind filter (class, method, field, ...)
//	project_root: Optional; defaults to the most recently analyzed project
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query parameter 'q' is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}
	limit := defaultSearchLimit
	if s := c.Query("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = min(parsed, maxSearchLimit)
		}
	}
	kind := index.Kind(c.Query("kind"))

	state, ok := h.project(c)
	if !ok {
		return
	}

	// Over-fetch when filtering by kind.
	fetch := limit
	if kind != "" {
		fetch = maxSearchLimit
	}
	entries, err := state.Index.Search(c.Request.Context(), query, fetch)
	if err != nil {
		slog.Error("search failed", slog.String("request_id", requestID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "search failed: " + err.Error(),
			Code:  "SEARCH_FAILED",
		})
		return
	}

	results := make([]*index.Entry, 0, len(entries))
	for _, e := range entries {
		if kind != "" && e.Kind != kind {
			continue
		}
		results = append(results, e)
		if len(results) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, SearchResponse{Query: query, Results: results})
}

// HandleSaveSnapshot handles POST /v1/semantic/snapshots.
//
// Response:
//
//	200 OK: SaveSnapshotResponse
//	404 Not Found: No report for the project
//	500 Internal Server Error: Save failed
//	503 Service Unavailable: Snapshot store not configured
func (h *Handlers) HandleSaveSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSaveSnapshot")

	mgr, ok := h.snapshots(c)
	if !ok {
		return
	}

	var req SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// All fields are optional.
		req = SaveSnapshotRequest{}
	}

	state, err := h.svc.Project(req.ProjectRoot)
	if err != nil {
		writeProjectError(c, err)
		return
	}

	meta, err := mgr.Save(c.Request.Context(), state.Report, req.Label)
	if err != nil {
		logger.Error("snapshot save failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to save snapshot: " + err.Error(),
			Code:  "SNAPSHOT_SAVE_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, SaveSnapshotResponse{Metadata: meta})
}

// HandleListSnapshots handles GET /v1/semantic/snapshots.
//
// Query Parameters:
//
//	project_root: Optional filter by project root path
//	limit: Maximum results, default 100
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	mgr, ok := h.snapshots(c)
	if !ok {
		return
	}

	limit := 100
	if s := c.Query("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	projectHash := ""
	if root := c.Query("project_root"); root != "" {
		projectHash = report.ProjectHash(root)
	}

	snapshots, err := mgr.List(c.Request.Context(), projectHash, limit)
	if err != nil {
		slog.Error("failed to list snapshots", slog.String("request_id", requestID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to list snapshots: " + err.Error(),
			Code:  "SNAPSHOT_LIST_FAILED",
		})
		return
	}
	if snapshots == nil {
		snapshots = []*report.SnapshotMetadata{}
	}
	c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: snapshots})
}

// HandleLoadSnapshot handles GET /v1/semantic/snapshots/:id.
func (h *Handlers) HandleLoadSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	mgr, ok := h.snapshots(c)
	if !ok {
		return
	}
	id := c.Param("id")

	rep, meta, err := mgr.Load(c.Request.Context(), id)
	if err != nil {
		writeSnapshotError(c, requestID, "snapshot", err)
		return
	}
	c.JSON(http.StatusOK, LoadSnapshotResponse{Metadata: meta, Report: rep})
}

// HandleDeleteSnapshot handles DELETE /v1/semantic/snapshots/:id.
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	mgr, ok := h.snapshots(c)
	if !ok {
		return
	}
	id := c.Param("id")

	if err := mgr.Delete(c.Request.Context(), id); err != nil {
		writeSnapshotError(c, requestID, "snapshot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleDiffSnapshots handles GET /v1/semantic/snapshots/diff.
//
// Query Parameters:
//
//	base: Base snapshot ID (required)
//	target: Target snapshot ID (required)
func (h *Handlers) HandleDiffSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDiffSnapshots")

	mgr, ok := h.snapshots(c)
	if !ok {
		return
	}

	baseID := c.Query("base")
	targetID := c.Query("target")
	if baseID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "both 'base' and 'target' parameters are required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	base, _, err := mgr.Load(c.Request.Context(), baseID)
	if err != nil {
		writeSnapshotError(c, requestID, "base snapshot", err)
		return
	}
	target, _, err := mgr.Load(c.Request.Context(), targetID)
	if err != nil {
		writeSnapshotError(c, requestID, "target snapshot", err)
		return
	}

	diff, err := report.DiffReports(base, target)
	if err != nil {
		logger.Error("diff failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "diff computation failed: " + err.Error(),
			Code:  "DIFF_FAILED",
		})
		return
	}

	logger.Info("snapshot diff computed",
		slog.String("base", baseID),
		slog.String("target", targetID),
		slog.Int("total_changes", diff.Summary.TotalChanges))
	c.JSON(http.StatusOK, SnapshotDiffResponse{Diff: diff})
}

// HandleHealth handles GET /v1/semantic/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:           "healthy",
		Projects:         h.svc.Projects(),
		SnapshotsEnabled: h.svc.SnapshotsEnabled(),
	})
}

// project resolves the project_root query parameter, writing the error
// response on failure.
func (h *Handlers) project(c *gin.Context) (*ProjectState, bool) {
	state, err := h.svc.Project(c.Query("project_root"))
	if err != nil {
		writeProjectError(c, err)
		return nil, false
	}
	return state, true
}

func (h *Handlers) snapshots(c *gin.Context) (*report.SnapshotManager, bool) {
	mgr, err := h.svc.Snapshots()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  "SNAPSHOTS_NOT_AVAILABLE",
		})
		return nil, false
	}
	return mgr, true
}

func writeProjectError(c *gin.Context, err error) {
	code := "PROJECT_NOT_FOUND"
	if errors.Is(err, ErrNoReports) {
		code = "NO_REPORTS"
	}
	c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: code})
}

func writeSnapshotError(c *gin.Context, requestID, what string, err error) {
	if errors.Is(err, report.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: what + " not found: " + err.Error(),
			Code:  "SNAPSHOT_NOT_FOUND",
		})
		return
	}
	slog.Error("snapshot operation failed",
		slog.String("request_id", requestID),
		slog.String("what", what),
		slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: what + " failed: " + err.Error(),
		Code:  "SNAPSHOT_FAILED",
	})
}
