// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// jobRunner is what the scheduler dispatches to; Service implements it.
type jobRunner interface {
	RunJob(ctx context.Context, jobID, tenantID, prompt string)
}

// Scheduler runs jobs asynchronously with a concurrency bound. Accepted
// jobs past the bound wait in their goroutine for a slot rather than
// being rejected.
//
// Thread Safety: Safe for concurrent use.
type Scheduler struct {
	runner jobRunner
	slots  *semaphore.Weighted

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	// baseCtx parents every job context so Shutdown can stop them all.
	baseCtx context.Context
	stop    context.CancelFunc
}

// NewScheduler builds a scheduler allowing maxConcurrent jobs at once.
func NewScheduler(runner jobRunner, maxConcurrent int) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		runner:  runner,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		cancels: make(map[string]context.CancelFunc),
		baseCtx: ctx,
		stop:    stop,
	}
}

// Submit queues a job for execution and returns immediately.
func (s *Scheduler) Submit(jobID, tenantID, prompt string) {
	ctx, cancel := context.WithCancel(s.baseCtx)

	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, jobID)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.slots.Acquire(ctx, 1); err != nil {
			slog.Warn("job cancelled while queued", slog.String("job_id", jobID))
			return
		}
		defer s.slots.Release(1)

		s.runner.RunJob(ctx, jobID, tenantID, prompt)
	}()
}

// Cancel stops a queued or running job. Returns false when the job is
// not active.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Shutdown cancels all active jobs and waits for their goroutines.
func (s *Scheduler) Shutdown() {
	s.stop()
	s.wg.Wait()
}
