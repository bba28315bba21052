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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token-bucket limit per tool.
//
// Description:
//
//	Each tool gets its own rate.Limiter built from a requests-per-minute
//	configuration. Tools without a configured limit always pass. Echo is
//	never rate-limited (local, no side effects).
//
// Thread Safety: Safe for concurrent use. The limiter map is built once
// at construction; rate.Limiter itself is concurrent-safe.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[ToolID]*rate.Limiter
}

// NewRateLimiter creates a rate limiter with per-tool limits.
//
// Inputs:
//   - limitsPerMin: Per-tool limits in requests per minute. Tools not in
//     the map, or mapped to zero, are not limited.
//
// Outputs:
//   - *RateLimiter: Configured rate limiter.
func NewRateLimiter(limitsPerMin map[ToolID]int) *RateLimiter {
	limiters := make(map[ToolID]*rate.Limiter, len(limitsPerMin))
	for tool, perMin := range limitsPerMin {
		if perMin <= 0 {
			continue
		}
		// Burst equals the per-minute limit so a quiet period can be
		// followed by a full window of calls.
		limiters[tool] = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin)
	}
	return &RateLimiter{limiters: limiters}
}

// Allow checks whether an invocation of the given tool is within its limit.
//
// Inputs:
//   - tool: The tool being invoked.
//
// Outputs:
//   - bool: True if the invocation may proceed (a token was consumed).
//   - time.Duration: If limited, an estimate of how long to wait. Zero
//     when allowed.
func (r *RateLimiter) Allow(tool ToolID) (bool, time.Duration) {
	if tool == ToolEcho {
		return true, 0
	}

	r.mu.Lock()
	limiter, exists := r.limiters[tool]
	r.mu.Unlock()
	if !exists {
		return true, 0
	}

	if limiter.Allow() {
		return true, 0
	}

	reservation := limiter.Reserve()
	wait := reservation.Delay()
	reservation.Cancel()
	return false, wait
}

// DefaultToolLimits is the standard per-tool rate configuration.
var DefaultToolLimits = map[ToolID]int{
	ToolHTTPFetch:    30,
	ToolWebSearch:    10,
	ToolWebPageText:  20,
	ToolWebSummarize: 10,
	ToolBuild:        2,
}
