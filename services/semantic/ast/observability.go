// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

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

const tracerName = "semantic.ast"

var (
	// parseDuration measures per-file parse latency.
	// Labels: status (success, failure)
	parseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "semantic",
		Subsystem: "ast",
		Name:      "parse_duration_seconds",
		Help:      "Java source parse latency by outcome",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})

	// typesExtracted counts type declarations extracted, nested included.
	typesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "ast",
		Name:      "types_extracted_total",
		Help:      "Total type declarations extracted from Java sources",
	})
)

func startParseSpan(ctx context.Context, filePath string, size int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ast.JavaParser.Parse",
		trace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("size_bytes", size),
		),
	)
}

func setParseSpanResult(span trace.Span, types, errs int) {
	span.SetAttributes(
		attribute.Int("types", types),
		attribute.Int("syntax_errors", errs),
	)
}

func recordParseFailure(span trace.Span, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	parseDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
}

func recordParseSuccess(start time.Time, types int) {
	parseDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	typesExtracted.Add(float64(types))
}
