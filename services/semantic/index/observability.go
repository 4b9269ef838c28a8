// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

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

const tracerName = "semantic.index"

var (
	// operationDuration measures index operation latency.
	// Labels: operation (search, add_batch), status (success, failure)
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "semantic",
		Subsystem: "index",
		Name:      "operation_duration_seconds",
		Help:      "Symbol index operation latency",
		Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"operation", "status"})

	searchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semantic",
		Subsystem: "index",
		Name:      "search_results",
		Help:      "Number of results returned per search",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500},
	})

	entriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "semantic",
		Subsystem: "index",
		Name:      "entries",
		Help:      "Entries held by the most recently updated index",
	})
)

func startOperationSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "index.SymbolIndex."+operation)
}

func setOperationSpanResult(span trace.Span, results int, success bool) {
	span.SetAttributes(attribute.Int("results", results))
	if success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, "operation failed")
	}
}

func recordOperationMetrics(operation string, d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	operationDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}
