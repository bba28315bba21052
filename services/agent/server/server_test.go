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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianAgent/services/agent/store"
)

// recordRunner captures submissions; the optional block channel holds
// RunJob open until closed.
type recordRunner struct {
	mu    sync.Mutex
	runs  []string
	st    *store.Store
	block chan struct{}
}

func (r *recordRunner) RunJob(ctx context.Context, jobID, tenantID, prompt string) {
	r.mu.Lock()
	r.runs = append(r.runs, jobID)
	r.mu.Unlock()

	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return
		}
	}
	if r.st != nil {
		r.st.UpdateJob(ctx, jobID, func(j *store.Job) {
			j.Status = store.JobDone
			j.FinalOutput = `{"summary":"done","citations":[]}`
		})
	}
}

func (r *recordRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func newTestRouter(t *testing.T, runner jobRunner) (*gin.Engine, *store.Store, *Scheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	scheduler := NewScheduler(runner, 2)
	t.Cleanup(scheduler.Shutdown)

	return NewRouter(NewHandlers(st, scheduler)), st, scheduler
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSubmitAndGetJob(t *testing.T) {
	runner := &recordRunner{}
	router, st, _ := newTestRouter(t, runner)
	runner.st = st

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/jobs",
		strings.NewReader(`{"prompt":"echo hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-a")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SubmitJobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.JobID == "" || resp.Status != "queued" {
		t.Errorf("resp = %+v", resp)
	}

	waitFor(t, func() bool {
		job, err := st.GetJob(context.Background(), resp.JobID)
		return err == nil && job.Status == store.JobDone
	})

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agent/jobs/"+resp.JobID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var job store.Job
	json.Unmarshal(w.Body.Bytes(), &job)
	if job.TenantID != "tenant-a" || job.FinalOutput == "" {
		t.Errorf("job = %+v", job)
	}
}

func TestSubmitJobValidation(t *testing.T) {
	router, _, _ := newTestRouter(t, &recordRunner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty prompt status = %d", w.Code)
	}

	long := strings.Repeat("x", maxPromptLength+1)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/agent/jobs",
		strings.NewReader(`{"prompt":"`+long+`"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized prompt status = %d", w.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t, &recordRunner{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agent/jobs/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != "JOB_NOT_FOUND" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestGetStepsNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t, &recordRunner{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agent/jobs/nope/steps", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCancelJob(t *testing.T) {
	runner := &recordRunner{block: make(chan struct{})}
	router, _, _ := newTestRouter(t, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/jobs",
		strings.NewReader(`{"prompt":"long running"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp SubmitJobResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	waitFor(t, func() bool { return runner.count() == 1 })

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/agent/jobs/"+resp.JobID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("cancel status = %d", w.Code)
	}

	// A second cancel finds no active job.
	waitFor(t, func() bool {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/agent/jobs/"+resp.JobID, nil))
		return w.Code == http.StatusNotFound
	})
}

func TestHealthAndMetrics(t *testing.T) {
	router, _, _ := newTestRouter(t, &recordRunner{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agent/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d", w.Code)
	}
}

func TestSchedulerConcurrencyBound(t *testing.T) {
	block := make(chan struct{})
	runner := &recordRunner{block: block}
	scheduler := NewScheduler(runner, 1)
	defer scheduler.Shutdown()

	scheduler.Submit("a", "legacy", "p")
	scheduler.Submit("b", "legacy", "p")

	waitFor(t, func() bool { return runner.count() == 1 })
	if runner.count() != 1 {
		t.Fatalf("runs = %d, want 1 while slot held", runner.count())
	}

	close(block)
	waitFor(t, func() bool { return runner.count() == 2 })
}
