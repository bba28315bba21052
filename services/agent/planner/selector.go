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
	"log/slog"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// Selector orchestrates the LLM -> rules fallback chain.
//
// Description:
//
//	In rules mode the rule-based planner is always used. In llm mode the
//	LLM planner is tried first; on any failure (provider transport error
//	or plan validation failure) the rule-based planner produces the plan,
//	relabeled as ModeLLMFallback with the original failure reason kept
//	for diagnostics. The fallback is a recovered condition and is never
//	surfaced to the end user as an error.
//
// Thread Safety: Safe for concurrent use.
type Selector struct {
	mode Mode
	llm  *LLMPlanner
}

// NewSelector builds a plan selector.
//
// Inputs:
//   - mode: ModeRules or ModeLLM. Any other value behaves as ModeRules.
//   - llm: The LLM planner. May be nil in rules mode.
func NewSelector(mode Mode, llm *LLMPlanner) *Selector {
	return &Selector{mode: mode, llm: llm}
}

// CreatePlan produces a plan and its metadata for a prompt.
//
// Outputs:
//   - Plan: Always a usable plan; this method cannot fail.
//   - PlanMetadata: Mode, step count, and fallback diagnostics. Safe to
//     persist.
func (s *Selector) CreatePlan(ctx context.Context, prompt string, allowed []tools.ToolID, maxSteps int) (Plan, PlanMetadata) {
	if s.mode == ModeLLM && s.llm != nil {
		plan, err := s.llm.Plan(ctx, prompt, allowed, maxSteps)
		if err == nil {
			RecordPlanCreated(string(ModeLLM))
			return plan, PlanMetadata{Mode: ModeLLM, StepCount: len(plan.Steps)}
		}

		reason := FallbackReason(err)
		slog.Info("planner falling back to rules",
			slog.String("reason", failureClass(err)),
		)

		fallback := CreateRulePlan(prompt, allowed, maxSteps)
		fallback.Mode = ModeLLMFallback
		fallback.LLMError = err.Error()

		RecordPlanCreated(string(ModeLLMFallback))
		RecordPlanFallback(failureClass(err))
		return fallback, PlanMetadata{
			Mode:           ModeLLMFallback,
			StepCount:      len(fallback.Steps),
			FallbackReason: reason,
			Error:          err.Error(),
		}
	}

	plan := CreateRulePlan(prompt, allowed, maxSteps)
	slog.Info("rules plan created", slog.Int("steps", len(plan.Steps)))
	RecordPlanCreated(string(ModeRules))
	return plan, PlanMetadata{Mode: ModeRules, StepCount: len(plan.Steps)}
}
