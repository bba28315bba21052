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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

func TestToolCallCeiling(t *testing.T) {
	tracker := NewTracker(Limits{MaxToolCalls: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, reason := tracker.CheckAndReserve(ctx, "tenant-a"); !ok {
			t.Fatalf("call %d denied: %s", i+1, reason)
		}
	}

	ok, reason := tracker.CheckAndReserve(ctx, "tenant-a")
	if ok {
		t.Fatal("fourth call should be denied")
	}
	want := "Tool call quota exceeded (3/3 per day)"
	if reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestBytesCeiling(t *testing.T) {
	tracker := NewTracker(Limits{MaxToolCalls: 100, MaxBytesFetched: 1000})
	ctx := context.Background()

	tracker.CheckAndReserve(ctx, "tenant-a")
	tracker.Record(ctx, "tenant-a", tools.ToolHTTPFetch, 1000)

	ok, reason := tracker.CheckAndReserve(ctx, "tenant-a")
	if ok {
		t.Fatal("call past the bytes ceiling should be denied")
	}
	want := "Bytes fetched quota exceeded (1000/1000 per day)"
	if reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestLegacyTenantUnlimited(t *testing.T) {
	tracker := NewTracker(Limits{MaxToolCalls: 1})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if ok, _ := tracker.CheckAndReserve(ctx, LegacyTenant); !ok {
			t.Fatal("legacy tenant must never be denied")
		}
	}
}

func TestTenantsIsolated(t *testing.T) {
	tracker := NewTracker(Limits{MaxToolCalls: 1})
	ctx := context.Background()

	tracker.CheckAndReserve(ctx, "tenant-a")
	if ok, _ := tracker.CheckAndReserve(ctx, "tenant-a"); ok {
		t.Fatal("tenant-a should be exhausted")
	}
	if ok, _ := tracker.CheckAndReserve(ctx, "tenant-b"); !ok {
		t.Fatal("tenant-b must have its own counter")
	}
}

func TestDayRollover(t *testing.T) {
	tracker := NewTracker(Limits{MaxToolCalls: 1})
	ctx := context.Background()

	day := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return day }

	tracker.CheckAndReserve(ctx, "tenant-a")
	if ok, _ := tracker.CheckAndReserve(ctx, "tenant-a"); ok {
		t.Fatal("should be exhausted before rollover")
	}

	tracker.now = func() time.Time { return day.Add(2 * time.Hour) }
	if ok, _ := tracker.CheckAndReserve(ctx, "tenant-a"); !ok {
		t.Fatal("counters should reset at UTC midnight")
	}
}

func TestCheckAndReserveAtomic(t *testing.T) {
	tracker := NewTracker(Limits{MaxToolCalls: 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := tracker.CheckAndReserve(ctx, "tenant-a"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func TestUsage(t *testing.T) {
	tracker := NewTracker(Limits{})
	ctx := context.Background()

	tracker.CheckAndReserve(ctx, "tenant-a")
	tracker.CheckAndReserve(ctx, "tenant-a")
	tracker.Record(ctx, "tenant-a", tools.ToolHTTPFetch, 250)

	calls, bytes := tracker.Usage("tenant-a")
	if calls != 2 || bytes != 250 {
		t.Errorf("usage = (%d, %d), want (2, 250)", calls, bytes)
	}
}
