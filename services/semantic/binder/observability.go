// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package binder

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "semantic.binder"

var (
	classesBound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "binder",
		Name:      "classes_bound_total",
		Help:      "Total project classes entered by the binder",
	})

	// unresolvedRefs counts type references that fell back to Unknown.
	unresolvedRefs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "binder",
		Name:      "unresolved_references_total",
		Help:      "Total type references that could not be resolved",
	})
)

func startBindSpan(ctx context.Context, builtins, units int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "binder.Binder.Bind",
		trace.WithAttributes(
			attribute.Int("builtin_units", builtins),
			attribute.Int("units", units),
		),
	)
}

func setBindSpanResult(span trace.Span, classes, fileErrors int) {
	span.SetAttributes(
		attribute.Int("classes", classes),
		attribute.Int("file_errors", fileErrors),
	)
	span.SetStatus(codes.Ok, "")
}

func recordBindFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
