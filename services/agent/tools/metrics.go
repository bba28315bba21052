// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Tool Invocations
// =============================================================================

var (
	// toolInvocationsTotal counts tool invocations by tool and status.
	// Labels: tool, status (ok, error)
	toolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Subsystem: "tools",
		Name:      "invocations_total",
		Help:      "Total tool invocations by tool and status",
	}, []string{"tool", "status"})

	// toolLatencySeconds measures tool execution latency.
	// Labels: tool
	toolLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agent",
		Subsystem: "tools",
		Name:      "latency_seconds",
		Help:      "Tool execution latency",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 15, 30},
	}, []string{"tool"})

	// toolCacheHitsTotal counts result cache hits by tool.
	// Labels: tool
	toolCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Subsystem: "tools",
		Name:      "cache_hits_total",
		Help:      "Total tool result cache hits",
	}, []string{"tool"})

	// toolRateLimitedTotal counts invocations denied by the rate limiter.
	// Labels: tool
	toolRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Subsystem: "tools",
		Name:      "rate_limited_total",
		Help:      "Total tool invocations denied by the rate limiter",
	}, []string{"tool"})
)

// RecordToolInvocation records a completed tool invocation.
func RecordToolInvocation(tool, status string, duration time.Duration) {
	toolInvocationsTotal.WithLabelValues(tool, status).Inc()
	toolLatencySeconds.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordToolCacheHit records a result cache hit.
func RecordToolCacheHit(tool string) {
	toolCacheHitsTotal.WithLabelValues(tool).Inc()
}

// RecordToolRateLimited records a rate-limiter denial.
func RecordToolRateLimited(tool string) {
	toolRateLimitedTotal.WithLabelValues(tool).Inc()
}
