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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/semantic/services/semantic/config"
	"github.com/AleutianAI/semantic/services/semantic/report"
)

// watchDebounce collapses bursts of file events into one re-analysis.
const watchDebounce = 300 * time.Millisecond

type analyzeOptions struct {
	json        bool
	watch       bool
	snapshotDir string
	label       string
	all         bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Analyze a Java project and print override status per method",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runAnalyze(cmd, a, opts, dir)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.json, "json", false, "print the full report as JSON")
	f.BoolVar(&opts.watch, "watch", false, "re-analyze when .java files change")
	f.StringVar(&opts.snapshotDir, "snapshot-dir", "", "save each report as a snapshot in this BadgerDB directory")
	f.StringVar(&opts.label, "label", "", "label stored with the snapshot")
	f.BoolVar(&opts.all, "all", false, "list every method, not only overriding and unknown ones")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, opts *analyzeOptions, dir string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	analyzer, err := report.NewAnalyzer(cfg, a.logger)
	if err != nil {
		return err
	}

	var snapshots *report.SnapshotManager
	if opts.snapshotDir != "" {
		db, err := report.OpenSnapshotDB(opts.snapshotDir)
		if err != nil {
			return err
		}
		defer closeDB(db, a.logger)
		if snapshots, err = report.NewSnapshotManager(db, a.logger, report.WithRetention(cfg.SnapshotRetention)); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	var previous *report.Report
	emit := func(rep *report.Report) error {
		if snapshots != nil {
			meta, err := snapshots.Save(ctx, rep, opts.label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "snapshot %s saved\n", meta.SnapshotID)
		}
		if err := printReport(out, rep, opts); err != nil {
			return err
		}
		if previous != nil {
			diff, err := report.DiffReports(previous, rep)
			if err != nil {
				return err
			}
			renderDiff(out, diff, newStyles(out))
		}
		previous = rep
		return nil
	}

	rep, err := analyzer.AnalyzeDir(ctx, dir)
	if err != nil {
		return err
	}
	if err := emit(rep); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return watchProject(ctx, cfg, rep.ProjectRoot, a.logger, func() error {
		rep, err := analyzer.AnalyzeDir(ctx, dir)
		if err != nil {
			return err
		}
		return emit(rep)
	})
}

func printReport(w io.Writer, rep *report.Report, opts *analyzeOptions) error {
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	renderReport(w, rep, newStyles(w), opts.all)
	return nil
}

// watchProject calls reanalyze after every settled burst of .java changes
// under root until ctx is done.
func watchProject(ctx context.Context, cfg *config.AnalysisConfig, root string, logger *slog.Logger, reanalyze func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, cfg, root); err != nil {
		return err
	}
	logger.Info("watching for changes", slog.String("root", root))

	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(watcher, cfg, ev.Name); err != nil {
						logger.Warn("cannot watch new directory", slog.String("dir", ev.Name), slog.Any("error", err))
					}
				}
			}
			if isJavaChange(ev) {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.Any("error", err))

		case <-timer.C:
			if err := reanalyze(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("re-analysis failed", slog.Any("error", err))
			}
		}
	}
}

// addWatchDirs watches dir and every non-excluded directory below it.
func addWatchDirs(watcher *fsnotify.Watcher, cfg *config.AnalysisConfig, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && cfg.IsExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// isJavaChange reports whether ev touches the content or existence of a
// .java file.
func isJavaChange(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".java") {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func closeDB(db *badger.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("closing snapshot store", slog.Any("error", err))
	}
}
