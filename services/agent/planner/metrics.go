// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Planning
// =============================================================================

var (
	// plansCreatedTotal counts plans by the mode that produced them.
	// Labels: mode (rules, llm, llm_fallback)
	plansCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Subsystem: "planner",
		Name:      "plans_created_total",
		Help:      "Total plans created by planner mode",
	}, []string{"mode"})

	// planFallbacksTotal counts LLM planning failures by failure class.
	// Labels: reason (provider_error, invalid_json, invalid_shape,
	// disallowed_tool, insecure_url, private_network, too_many_steps)
	planFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Subsystem: "planner",
		Name:      "fallbacks_total",
		Help:      "Total LLM planning fallbacks by failure class",
	}, []string{"reason"})
)

// RecordPlanCreated records a created plan by mode.
func RecordPlanCreated(mode string) {
	plansCreatedTotal.WithLabelValues(mode).Inc()
}

// RecordPlanFallback records an LLM planning fallback.
func RecordPlanFallback(reason string) {
	planFallbacksTotal.WithLabelValues(reason).Inc()
}
