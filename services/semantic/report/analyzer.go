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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/semantic/services/semantic/ast"
	"github.com/AleutianAI/semantic/services/semantic/binder"
	"github.com/AleutianAI/semantic/services/semantic/config"
)

// ErrInvalidRoot indicates the project root is missing or not a directory.
var ErrInvalidRoot = errors.New("invalid project root")

// SourceFile is one in-memory Java source.
type SourceFile struct {
	// Path is relative to the project root, slash separated.
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

// Analyzer runs the parse, bind and report pipeline.
//
// Description:
//
//	Files are parsed concurrently, bounded by ParseConcurrency. Binding and
//	report building run on the calling goroutine because a symbol table
//	belongs to one goroutine. Builtin stubs are parsed once per Analyzer.
//
// Thread Safety:
//
//	Safe for concurrent use; every analysis builds its own table.
type Analyzer struct {
	cfg    *config.AnalysisConfig
	parser *ast.JavaParser
	binder *binder.Binder
	logger *slog.Logger

	builtinsMu sync.Mutex
	builtins   []*ast.CompilationUnit
}

// NewAnalyzer creates an Analyzer.
//
// Inputs:
//
//	cfg - Analysis configuration. Must not be nil.
//	logger - Logger for diagnostic output. Must not be nil.
func NewAnalyzer(cfg *config.AnalysisConfig, logger *slog.Logger) (*Analyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("analysis config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Analyzer{
		cfg:    cfg,
		parser: ast.NewJavaParser(ast.WithJavaMaxFileSize(int64(cfg.MaxFileSize))),
		binder: binder.NewBinder(
			binder.WithImplicitImports(cfg.ImplicitImports),
			binder.WithLogger(logger),
		),
		logger: logger,
	}, nil
}

// AnalyzeDir analyzes every Java file under root.
//
// Description:
//
//	Directories named in exclude_dirs are skipped, as are test sources
//	unless include_tests is set. A semantic.config.yaml in root can exclude
//	further path prefixes or force test paths back in. Files that fail to
//	read or parse are reported in FileErrors and do not fail the analysis.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	root - Project directory.
//
// Outputs:
//
//	*Report - The analysis report.
//	error - ErrInvalidRoot, a walk failure or the context error.
func (a *Analyzer) AnalyzeDir(ctx context.Context, root string) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	projCfg, err := LoadProjectConfig(absRoot)
	if err != nil {
		return nil, err
	}

	paths, err := a.collectFiles(ctx, absRoot, projCfg)
	if err != nil {
		return nil, err
	}

	inputs := make([]input, len(paths))
	for i, rel := range paths {
		full := filepath.Join(absRoot, filepath.FromSlash(rel))
		inputs[i] = input{path: rel, load: func() ([]byte, error) {
			return os.ReadFile(full)
		}}
	}
	return a.analyze(ctx, absRoot, inputs)
}

// AnalyzeSources analyzes in-memory sources as if they lived under root.
func (a *Analyzer) AnalyzeSources(ctx context.Context, root string, files []SourceFile) (*Report, error) {
	sorted := make([]SourceFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	inputs := make([]input, 0, len(sorted))
	for _, f := range sorted {
		if !strings.HasSuffix(f.Path, ".java") {
			continue
		}
		content := []byte(f.Content)
		inputs = append(inputs, input{path: f.Path, load: func() ([]byte, error) {
			return content, nil
		}})
	}
	return a.analyze(ctx, root, inputs)
}

type input struct {
	path string
	load func() ([]byte, error)
}

// collectFiles returns slash-separated paths of Java files, sorted.
func (a *Analyzer) collectFiles(ctx context.Context, root string, projCfg ProjectConfig) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			a.logger.Warn("skipping unreadable path", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && a.cfg.IsExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".java") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if projCfg.Excluded(rel) {
			return nil
		}
		if !a.cfg.IncludeTests && IsTestPath(rel) && !projCfg.Included(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// IsTestPath reports whether a slash-separated path looks like test code:
// under a src/test tree or named *Test.java, *Tests.java or *IT.java.
func IsTestPath(path string) bool {
	if strings.HasPrefix(path, "src/test/") || strings.Contains(path, "/src/test/") {
		return true
	}
	name := path[strings.LastIndex(path, "/")+1:]
	for _, suffix := range []string{"Test.java", "Tests.java", "IT.java"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return true
		}
	}
	return false
}

// analyze is the shared pipeline behind AnalyzeDir and AnalyzeSources.
func (a *Analyzer) analyze(ctx context.Context, root string, inputs []input) (*Report, error) {
	ctx, span := startAnalyzeSpan(ctx, root, len(inputs))
	defer span.End()
	start := time.Now()

	builtins, err := a.loadBuiltins(ctx)
	if err != nil {
		recordAnalyzeFailure(span, err)
		return nil, err
	}

	units, fileErrors, err := a.parseAll(ctx, inputs)
	if err != nil {
		recordAnalyzeFailure(span, err)
		return nil, err
	}

	result, err := a.binder.Bind(ctx, builtins, units)
	if err != nil {
		recordAnalyzeFailure(span, err)
		return nil, fmt.Errorf("binding: %w", err)
	}
	for _, fe := range result.FileErrors {
		fileErrors = append(fileErrors, FileError{FilePath: fe.FilePath, Message: fe.Message})
	}

	createdAt := time.Now().UnixMilli()
	rep := &Report{
		ProjectRoot:    root,
		CreatedAtMilli: createdAt,
		SchemaVersion:  SchemaVersion,
		Classes:        Build(result),
		FileErrors:     fileErrors,
	}
	rep.Unresolved = result.Unresolved()
	rep.Hash = ReportHash(rep.Classes)
	rep.ID = hashString(fmt.Sprintf("%s:%d:%s", root, createdAt, rep.Hash))[:16]
	rep.Stats = computeStats(rep, len(inputs))
	rep.Stats.DurationMilli = time.Since(start).Milliseconds()

	setAnalyzeSpanResult(span, rep.Stats)
	recordAnalyzeSuccess(time.Since(start), rep.Stats)
	a.logger.Info("analysis complete",
		slog.String("root", root),
		slog.Int("files", rep.Stats.Files),
		slog.Int("classes", rep.Stats.Classes),
		slog.Int("methods", rep.Stats.Methods),
		slog.Int("unresolved", rep.Stats.Unresolved),
		slog.Int64("duration_ms", rep.Stats.DurationMilli))
	return rep, nil
}

// loadBuiltins parses the platform stubs on first use. Failures are not
// cached, so a cancelled first analysis does not poison later ones.
func (a *Analyzer) loadBuiltins(ctx context.Context) ([]*ast.CompilationUnit, error) {
	a.builtinsMu.Lock()
	defer a.builtinsMu.Unlock()

	if a.builtins != nil {
		return a.builtins, nil
	}
	units, err := binder.ParseBuiltins(ctx, a.parser, a.cfg.Builtins, a.logger)
	if err != nil {
		return nil, fmt.Errorf("loading builtins: %w", err)
	}
	a.builtins = units
	return units, nil
}

// parseAll parses inputs concurrently and returns units in input order.
// Per-file failures become FileErrors; only cancellation is fatal.
func (a *Analyzer) parseAll(ctx context.Context, inputs []input) ([]*ast.CompilationUnit, []FileError, error) {
	parsed := make([]*ast.CompilationUnit, len(inputs))
	failures := make([]string, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.cfg.ParseConcurrency))
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := in.load()
			if err != nil {
				failures[i] = fmt.Sprintf("reading: %v", err)
				return nil
			}
			unit, err := a.parser.Parse(gctx, content, in.path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures[i] = err.Error()
				return nil
			}
			parsed[i] = unit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("parsing canceled: %w", err)
	}

	units := make([]*ast.CompilationUnit, 0, len(inputs))
	var fileErrors []FileError
	for i, unit := range parsed {
		if failures[i] != "" {
			fileErrors = append(fileErrors, FileError{FilePath: inputs[i].path, Message: failures[i]})
			continue
		}
		if len(unit.Errors) > 0 {
			fileErrors = append(fileErrors, FileError{
				FilePath: inputs[i].path,
				Message:  fmt.Sprintf("%d syntax errors, first: %s", len(unit.Errors), unit.Errors[0]),
			})
		}
		units = append(units, unit)
	}
	return units, fileErrors, nil
}
