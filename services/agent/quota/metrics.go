// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quotaDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent",
			Subsystem: "quota",
			Name:      "denied_total",
			Help:      "Tool calls denied by the daily quota gate, by ceiling.",
		},
		[]string{"ceiling"},
	)

	bytesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent",
			Subsystem: "quota",
			Name:      "bytes_fetched_total",
			Help:      "Bytes fetched by quota-tracked tool calls, by tool.",
		},
		[]string{"tool"},
	)
)

// RecordQuotaDenied records a denial. Ceiling is "tool_calls" or
// "bytes_fetched".
func RecordQuotaDenied(ceiling string) {
	quotaDenied.WithLabelValues(ceiling).Inc()
}

// RecordBytesFetched accumulates fetched bytes for a tool.
func RecordBytesFetched(tool string, n int) {
	bytesFetchedTotal.WithLabelValues(tool).Add(float64(n))
}
