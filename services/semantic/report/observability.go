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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "semantic.report"

var (
	// analyzeRuns counts analyses.
	// Labels: status (success, failure)
	analyzeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "report",
		Name:      "analyze_runs_total",
		Help:      "Total project analyses by outcome",
	}, []string{"status"})

	analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semantic",
		Subsystem: "report",
		Name:      "analyze_duration_seconds",
		Help:      "Whole-project analysis latency",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	filesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "report",
		Name:      "files_analyzed_total",
		Help:      "Total Java files analyzed",
	})

	// snapshotOps counts snapshot store operations.
	// Labels: operation (save, load, delete, prune), status (success, failure)
	snapshotOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "report",
		Name:      "snapshot_operations_total",
		Help:      "Snapshot store operations by outcome",
	}, []string{"operation", "status"})
)

func startAnalyzeSpan(ctx context.Context, root string, files int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "report.Analyzer.Analyze",
		trace.WithAttributes(
			attribute.String("root", root),
			attribute.Int("files", files),
		),
	)
}

func setAnalyzeSpanResult(span trace.Span, s Stats) {
	span.SetAttributes(
		attribute.Int("classes", s.Classes),
		attribute.Int("methods", s.Methods),
		attribute.Int("unresolved", s.Unresolved),
		attribute.Int("file_errors", s.FileErrors),
	)
	span.SetStatus(codes.Ok, "")
}

func recordAnalyzeFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	analyzeRuns.WithLabelValues("failure").Inc()
}

func recordAnalyzeSuccess(d time.Duration, s Stats) {
	analyzeRuns.WithLabelValues("success").Inc()
	analyzeDuration.Observe(d.Seconds())
	filesAnalyzed.Add(float64(s.Files))
}

func startSnapshotSpan(ctx context.Context, operation, id string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "report.SnapshotManager."+operation,
		trace.WithAttributes(attribute.String("snapshot_id", id)),
	)
}

func recordSnapshotOp(span trace.Span, operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	snapshotOps.WithLabelValues(operation, status).Inc()
}
