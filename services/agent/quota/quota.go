// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quota enforces per-tenant daily ceilings on tool calls and
// fetched bytes. Counters are in-memory and reset at UTC midnight; a
// restart forgives the day's usage, which is acceptable for a soft
// abuse brake.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// LegacyTenant identifies unauthenticated callers grandfathered in from
// before tenancy existed. It is never quota-limited.
const LegacyTenant = "legacy"

// Default daily ceilings per tenant.
const (
	DefaultMaxToolCalls    = 500
	DefaultMaxBytesFetched = 50 * 1024 * 1024
)

// Limits configures the per-tenant daily ceilings. Zero values fall back
// to the defaults.
type Limits struct {
	MaxToolCalls    int
	MaxBytesFetched int
}

type tenantUsage struct {
	day          string
	toolCalls    int
	bytesFetched int
}

// Tracker is an in-memory daily quota gate.
//
// Thread Safety: Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	limits Limits
	usage  map[string]*tenantUsage

	// now is swappable for day-rollover tests.
	now func() time.Time
}

// NewTracker builds a tracker with the given limits.
func NewTracker(limits Limits) *Tracker {
	if limits.MaxToolCalls <= 0 {
		limits.MaxToolCalls = DefaultMaxToolCalls
	}
	if limits.MaxBytesFetched <= 0 {
		limits.MaxBytesFetched = DefaultMaxBytesFetched
	}
	return &Tracker{
		limits: limits,
		usage:  make(map[string]*tenantUsage),
		now:    time.Now,
	}
}

// CheckAndReserve decides whether the tenant may make one more tool call,
// and reserves it when allowed.
//
// Description:
//
//	The check and the reservation are a single atomic operation, so
//	concurrent callers cannot both pass on the last remaining call.
//	The bytes ceiling is checked here too: once a tenant has fetched
//	past it, further tool calls are denied.
//
// Outputs:
//   - bool: True when the call is allowed.
//   - string: A human-readable denial reason, empty when allowed.
func (t *Tracker) CheckAndReserve(_ context.Context, tenantID string) (bool, string) {
	if tenantID == LegacyTenant || tenantID == "" {
		return true, ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.tenant(tenantID)

	if usage.toolCalls >= t.limits.MaxToolCalls {
		slog.Warn("tool call quota exceeded",
			slog.String("tenant_id", tenantID),
			slog.Int("used", usage.toolCalls),
		)
		RecordQuotaDenied("tool_calls")
		return false, fmt.Sprintf("Tool call quota exceeded (%d/%d per day)",
			usage.toolCalls, t.limits.MaxToolCalls)
	}

	if usage.bytesFetched >= t.limits.MaxBytesFetched {
		slog.Warn("bytes fetched quota exceeded",
			slog.String("tenant_id", tenantID),
			slog.Int("used", usage.bytesFetched),
		)
		RecordQuotaDenied("bytes_fetched")
		return false, fmt.Sprintf("Bytes fetched quota exceeded (%d/%d per day)",
			usage.bytesFetched, t.limits.MaxBytesFetched)
	}

	usage.toolCalls++
	return true, ""
}

// Record accumulates the bytes a completed tool call fetched. The call
// itself was already counted by CheckAndReserve.
func (t *Tracker) Record(_ context.Context, tenantID string, tool tools.ToolID, bytesFetched int) {
	if tenantID == LegacyTenant || tenantID == "" || bytesFetched <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tenant(tenantID).bytesFetched += bytesFetched
	RecordBytesFetched(string(tool), bytesFetched)
}

// Usage reports the tenant's current-day consumption.
func (t *Tracker) Usage(tenantID string) (toolCalls, bytesFetched int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.tenant(tenantID)
	return usage.toolCalls, usage.bytesFetched
}

// tenant returns the current-day usage record, rolling counters over when
// the UTC day has changed. Caller must hold the lock.
func (t *Tracker) tenant(tenantID string) *tenantUsage {
	day := t.now().UTC().Format("2006-01-02")

	usage, ok := t.usage[tenantID]
	if !ok || usage.day != day {
		usage = &tenantUsage{day: day}
		t.usage[tenantID] = usage
	}
	return usage
}
