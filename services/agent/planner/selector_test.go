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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// stubProvider returns a canned response or error.
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestSelector_RulesMode(t *testing.T) {
	provider := &stubProvider{response: validPlanJSON}
	selector := NewSelector(ModeRules, NewLLMPlanner(provider, time.Second))

	plan, meta := selector.CreatePlan(context.Background(), "fetch https://example.com", allTools, 3)

	if provider.calls != 0 {
		t.Error("rules mode must not call the provider")
	}
	if plan.Mode != ModeRules || meta.Mode != ModeRules {
		t.Errorf("mode = %s / %s, want rules", plan.Mode, meta.Mode)
	}
	if meta.StepCount != len(plan.Steps) {
		t.Errorf("metadata step count %d != plan steps %d", meta.StepCount, len(plan.Steps))
	}
}

func TestSelector_LLMSuccess(t *testing.T) {
	provider := &stubProvider{response: validPlanJSON}
	selector := NewSelector(ModeLLM, NewLLMPlanner(provider, time.Second))

	plan, meta := selector.CreatePlan(context.Background(), "fetch the example page", allTools, 3)

	if plan.Mode != ModeLLM {
		t.Errorf("mode = %s, want llm", plan.Mode)
	}
	if meta.Mode != ModeLLM || meta.FallbackReason != "" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.StepCount != 1 {
		t.Errorf("step count = %d", meta.StepCount)
	}
}

func TestSelector_FallbackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	selector := NewSelector(ModeLLM, NewLLMPlanner(provider, time.Second))

	plan, meta := selector.CreatePlan(context.Background(), "fetch https://example.com", allTools, 3)

	if plan.Mode != ModeLLMFallback {
		t.Errorf("plan mode = %s, want llm_fallback", plan.Mode)
	}
	if meta.Mode != ModeLLMFallback {
		t.Errorf("metadata mode = %s", meta.Mode)
	}
	if meta.FallbackReason == "" {
		t.Error("fallback reason must be recorded")
	}
	if plan.LLMError == "" {
		t.Error("plan must carry the original LLM error for diagnostics")
	}
	// The fallback still produces a usable plan from rules.
	if len(plan.Steps) == 0 {
		t.Error("fallback plan has no steps")
	}
	if plan.Steps[0].Tool != tools.ToolWebPageText {
		t.Errorf("fallback step tool = %s", plan.Steps[0].Tool)
	}
}

func TestSelector_FallbackOnInvalidPlan(t *testing.T) {
	provider := &stubProvider{response: "definitely not json"}
	selector := NewSelector(ModeLLM, NewLLMPlanner(provider, time.Second))

	plan, meta := selector.CreatePlan(context.Background(), "repeat hello", allTools, 3)

	if plan.Mode != ModeLLMFallback {
		t.Errorf("plan mode = %s", plan.Mode)
	}
	if meta.FallbackReason != "LLM returned invalid JSON" {
		t.Errorf("fallback reason = %q", meta.FallbackReason)
	}
}

func TestSelector_FallbackOnInsecurePlan(t *testing.T) {
	insecure := `{"goal":"g","steps":[{"id":1,"tool":"http_fetch","input":{"url":"http://example.com"},"why":"w"}]}`
	provider := &stubProvider{response: insecure}
	selector := NewSelector(ModeLLM, NewLLMPlanner(provider, time.Second))

	plan, meta := selector.CreatePlan(context.Background(), "fetch https://example.com", allTools, 3)

	// An insecure LLM plan must never execute as mode=llm.
	if plan.Mode == ModeLLM {
		t.Fatal("insecure plan accepted as llm mode")
	}
	if meta.FallbackReason != "LLM suggested non-HTTPS URL" {
		t.Errorf("fallback reason = %q", meta.FallbackReason)
	}
}

func TestLLMPlanner_ProviderTimeout(t *testing.T) {
	slow := &blockingProvider{}
	llm := NewLLMPlanner(slow, 10*time.Millisecond)

	_, err := llm.Plan(context.Background(), "anything", allTools, 3)
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure on timeout, got %v", err)
	}
}

// blockingProvider waits for ctx cancellation, simulating a hung provider.
type blockingProvider struct{}

func (b *blockingProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestFallbackReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrEmptyResponse, "Empty response from LLM"},
		{ErrInvalidJSON, "LLM returned invalid JSON"},
		{ErrInvalidShape, "LLM plan failed validation"},
		{ErrPrivateNetwork, "LLM suggested private network access"},
		{ErrTooManySteps, "LLM plan has too many steps"},
		{ErrProviderFailure, "LLM provider call failed"},
	}
	for _, tc := range cases {
		if got := FallbackReason(tc.err); got != tc.want {
			t.Errorf("FallbackReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
