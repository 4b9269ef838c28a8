// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Symbol Resolution
// =============================================================================

var (
	// completionsTotal counts completer invocations by symbol kind.
	// Labels: kind (package, type, method, ...)
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "resolve",
		Name:      "completions_total",
		Help:      "Total lazy symbol completions by symbol kind",
	}, []string{"kind"})

	// overrideResolutionsTotal counts IsOverridden answers.
	// Labels: result (true, false, unknown)
	overrideResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "semantic",
		Subsystem: "resolve",
		Name:      "override_resolutions_total",
		Help:      "Total override resolutions by tri-state result",
	}, []string{"result"})
)
