// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Run Metrics
// =============================================================================

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent",
			Subsystem: "executor",
			Name:      "runs_total",
			Help:      "Total plan executions by outcome.",
		},
		[]string{"outcome"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agent",
			Subsystem: "executor",
			Name:      "run_duration_seconds",
			Help:      "End-to-end plan execution latency.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	runsAborted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent",
			Subsystem: "executor",
			Name:      "runs_aborted_total",
			Help:      "Runs aborted before completing all steps, by cause.",
		},
		[]string{"cause"},
	)

	stepsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent",
			Subsystem: "executor",
			Name:      "steps_completed_total",
			Help:      "Successfully completed plan steps by tool.",
		},
		[]string{"tool"},
	)
)

// RecordRunCompleted records one finished run. Outcome is "success" or
// "failure".
func RecordRunCompleted(outcome string, elapsed time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordRunAborted records the cause of an aborted run.
func RecordRunAborted(cause string) {
	runsAborted.WithLabelValues(cause).Inc()
}

// RecordStepCompleted records one successfully completed step.
func RecordStepCompleted(tool string) {
	stepsCompleted.WithLabelValues(tool).Inc()
}
