// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package semantic exposes Java semantic analysis over HTTP.
//
// A Service keeps the most recent report of every analyzed project together
// with a symbol index built from it. Handlers wrap the Service for gin, and
// RegisterRoutes mounts them under /v1/semantic.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/semantic/services/semantic/index"
	"github.com/AleutianAI/semantic/services/semantic/report"
)

// inlineRoot is the project root recorded for inline sources without one.
const inlineRoot = "inline"

var (
	// ErrNoReports indicates nothing has been analyzed yet.
	ErrNoReports = errors.New("no project analyzed yet")

	// ErrProjectNotFound indicates the requested project has no report.
	ErrProjectNotFound = errors.New("project not analyzed")

	// ErrSnapshotsDisabled indicates the service has no snapshot store.
	ErrSnapshotsDisabled = errors.New("snapshot persistence not configured")
)

// ProjectState is the latest analysis of one project.
type ProjectState struct {
	Report *report.Report
	Index  *index.SymbolIndex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSnapshotManager enables snapshot endpoints.
func WithSnapshotManager(mgr *report.SnapshotManager) ServiceOption {
	return func(s *Service) {
		s.snapshotMgr = mgr
	}
}

// WithServiceLogger sets the service logger. Defaults to slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIndexMaxEntries bounds each project's symbol index.
func WithIndexMaxEntries(n int) ServiceOption {
	return func(s *Service) {
		s.indexMaxEntries = n
	}
}

// Service holds analyzed projects.
//
// Thread Safety:
//
//	Safe for concurrent use. Analyses run outside the lock; only the swap
//	of a project's state is serialized.
type Service struct {
	analyzer        *report.Analyzer
	snapshotMgr     *report.SnapshotManager
	logger          *slog.Logger
	indexMaxEntries int

	mu         sync.RWMutex
	projects   map[string]*ProjectState
	latestRoot string
}

// NewService creates a Service over analyzer, which must not be nil.
func NewService(analyzer *report.Analyzer, opts ...ServiceOption) (*Service, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer must not be nil")
	}
	s := &Service{
		analyzer:        analyzer,
		logger:          slog.Default(),
		indexMaxEntries: index.DefaultMaxEntries,
		projects:        make(map[string]*ProjectState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SnapshotsEnabled reports whether a snapshot store is configured.
func (s *Service) SnapshotsEnabled() bool {
	return s.snapshotMgr != nil
}

// Snapshots returns the snapshot store, or ErrSnapshotsDisabled.
func (s *Service) Snapshots() (*report.SnapshotManager, error) {
	if s.snapshotMgr == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshotMgr, nil
}

// Analyze runs an analysis and makes it the project's current state.
//
// Description:
//
//	With Files set, the sources are analyzed in memory and ProjectRoot is
//	only a label (defaulting to "inline"). Otherwise ProjectRoot is walked
//	on disk. When SaveSnapshot is set the report is also persisted.
//
// Outputs:
//
//	*ProjectState - The new state of the project.
//	*report.SnapshotMetadata - Non-nil only when a snapshot was saved.
//	error - Analysis, indexing or snapshot failure.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*ProjectState, *report.SnapshotMetadata, error) {
	if req.SaveSnapshot && s.snapshotMgr == nil {
		return nil, nil, ErrSnapshotsDisabled
	}

	var rep *report.Report
	var err error
	if len(req.Files) > 0 {
		root := req.ProjectRoot
		if root == "" {
			root = inlineRoot
		}
		rep, err = s.analyzer.AnalyzeSources(ctx, root, req.Files)
	} else {
		rep, err = s.analyzer.AnalyzeDir(ctx, req.ProjectRoot)
	}
	if err != nil {
		return nil, nil, err
	}

	state, err := s.install(ctx, rep)
	if err != nil {
		return nil, nil, err
	}

	var meta *report.SnapshotMetadata
	if req.SaveSnapshot {
		if meta, err = s.snapshotMgr.Save(ctx, rep, req.Label); err != nil {
			return state, nil, fmt.Errorf("saving snapshot: %w", err)
		}
	}
	return state, meta, nil
}

// install indexes rep and stores it as its project's current state.
func (s *Service) install(ctx context.Context, rep *report.Report) (*ProjectState, error) {
	idx := index.NewSymbolIndex(index.WithMaxEntries(s.indexMaxEntries))
	if err := idx.AddBatch(ctx, report.IndexEntries(rep)); err != nil {
		return nil, fmt.Errorf("indexing report: %w", err)
	}
	state := &ProjectState{Report: rep, Index: idx}

	s.mu.Lock()
	s.projects[rep.ProjectRoot] = state
	s.latestRoot = rep.ProjectRoot
	s.mu.Unlock()

	s.logger.Info("project state updated",
		slog.String("project_root", rep.ProjectRoot),
		slog.String("report_id", rep.ID),
		slog.Int("index_entries", idx.Len()))
	return state, nil
}

// Project returns the state of projectRoot, or of the most recently
// analyzed project when projectRoot is empty.
func (s *Service) Project(projectRoot string) (*ProjectState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if projectRoot == "" {
		if s.latestRoot == "" {
			return nil, ErrNoReports
		}
		projectRoot = s.latestRoot
	}
	state, ok := s.projects[projectRoot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectRoot)
	}
	return state, nil
}

// Projects returns the analyzed project roots, sorted.
func (s *Service) Projects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := make([]string, 0, len(s.projects))
	for root := range s.projects {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
