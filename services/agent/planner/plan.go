// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner turns a natural-language prompt into a validated,
// bounded execution plan.
//
// Two planners exist: the rule-based planner (deterministic, network-free,
// always succeeds) and the LLM planner (provider-backed, treats the model
// response as untrusted input and re-validates it programmatically). The
// Selector composes them: LLM failures of any kind fall back to rules and
// are recorded as a recovered condition, never a hard failure.
package planner

import (
	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// Mode identifies which planner produced a plan.
type Mode string

const (
	// ModeRules marks a plan from the rule-based planner.
	ModeRules Mode = "rules"

	// ModeLLM marks a plan from the LLM planner that passed validation.
	ModeLLM Mode = "llm"

	// ModeLLMFallback marks a rules plan produced after the LLM planner
	// failed. A recovered condition, not an error.
	ModeLLMFallback Mode = "llm_fallback"
)

// PlanStep is a single tool invocation in a plan.
//
// Input values may contain deferred template placeholders such as
// {{previous_text}} that the executor resolves from prior step output.
type PlanStep struct {
	Tool        tools.ToolID   `json:"tool"`
	Input       map[string]any `json:"input"`
	Description string         `json:"description"`
}

// Plan is a validated, ordered sequence of tool invocations.
//
// Invariants: len(Steps) never exceeds the configured step bound, and
// every step's tool is a member of the caller's allowlist. Plans are
// ephemeral; only PlanMetadata and flattened step records are persisted.
type Plan struct {
	Steps     []PlanStep `json:"steps"`
	Reasoning string     `json:"reasoning"`
	Mode      Mode       `json:"mode"`
	LLMError  string     `json:"llm_error,omitempty"`
}

// PlanMetadata describes the planning phase for audit.
//
// It never contains secrets or raw LLM text, only failure classes, so it
// is safe to persist and log.
type PlanMetadata struct {
	Mode           Mode   `json:"mode"`
	StepCount      int    `json:"step_count"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	Error          string `json:"error,omitempty"`
}

// allowSet builds a membership set from a tool allowlist.
func allowSet(allowed []tools.ToolID) map[tools.ToolID]struct{} {
	set := make(map[tools.ToolID]struct{}, len(allowed))
	for _, t := range allowed {
		set[t] = struct{}{}
	}
	return set
}
