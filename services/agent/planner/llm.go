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
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// Provider is the completion interface the LLM planner consumes. The
// provider handle is injected at construction so tests can substitute
// deterministic doubles without global state.
type Provider interface {
	// Complete sends a system/user prompt pair and returns the raw
	// response text. Implementations honor ctx cancellation.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrProviderFailure wraps transport-level provider errors (timeout,
// connection refused, non-2xx status). Treated exactly like a validation
// failure: it triggers fallback, never a hard error.
var ErrProviderFailure = errors.New("LLM provider call failed")

// LLMPlanner requests plans from a completion provider and validates them.
//
// Thread Safety: Safe for concurrent use when the provider is.
type LLMPlanner struct {
	provider Provider
	timeout  time.Duration
}

// NewLLMPlanner builds an LLM planner around a provider handle.
//
// Inputs:
//   - provider: The completion provider. Must not be nil.
//   - timeout: Per-call bound applied on top of the caller's context.
//     Zero means no additional bound.
func NewLLMPlanner(provider Provider, timeout time.Duration) *LLMPlanner {
	return &LLMPlanner{provider: provider, timeout: timeout}
}

// Plan requests a plan from the provider and validates it.
//
// Description:
//
//	The provider's raw text passes through ValidateUntrusted; any
//	transport or validation failure is returned as a typed error that the
//	Selector converts into a rules fallback. The raw response is never
//	attached to the error.
//
// Inputs:
//   - ctx: Context for cancellation; a configured timeout is layered on.
//   - prompt: The user's natural-language request.
//   - allowed: The tool allowlist.
//   - maxSteps: Upper bound on plan length.
//
// Outputs:
//   - Plan: A Mode=ModeLLM plan on success.
//   - error: ErrProviderFailure or a validation sentinel on failure.
func (p *LLMPlanner) Plan(ctx context.Context, prompt string, allowed []tools.ToolID, maxSteps int) (Plan, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := otel.Tracer("aleutian.agent").Start(ctx, "planner.LLMPlanner.Plan",
		oteltrace.WithAttributes(attribute.Int("max_steps", maxSteps)),
	)
	defer span.End()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.provider.Complete(ctx, SystemPrompt(maxSteps), UserPrompt(prompt, allowed, maxSteps))
	if err != nil {
		slog.Info("llm planner fallback",
			slog.String("reason", "provider_error"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider error")
		return Plan{}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	plan, err := ValidateUntrusted(raw, allowed, maxSteps)
	if err != nil {
		slog.Warn("llm plan rejected",
			slog.String("failure_class", failureClass(err)),
		)
		span.SetStatus(codes.Error, failureClass(err))
		return Plan{}, err
	}

	slog.Info("llm plan valid", slog.Int("steps", len(plan.Steps)))
	span.SetAttributes(attribute.Int("steps", len(plan.Steps)))
	span.SetStatus(codes.Ok, "")
	return plan, nil
}

// failureClass maps a planning error to a short diagnostic label.
func failureClass(err error) string {
	switch {
	case errors.Is(err, ErrProviderFailure):
		return "provider_error"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrInvalidJSON):
		return "invalid_json"
	case errors.Is(err, ErrInvalidShape):
		return "invalid_shape"
	case errors.Is(err, ErrDisallowedTool):
		return "disallowed_tool"
	case errors.Is(err, ErrInsecureURL):
		return "insecure_url"
	case errors.Is(err, ErrPrivateNetwork):
		return "private_network"
	case errors.Is(err, ErrTooManySteps):
		return "too_many_steps"
	default:
		return "unknown"
	}
}

// FallbackReason renders the user-safe reason string recorded in plan
// metadata after an LLM failure.
func FallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrProviderFailure):
		return "LLM provider call failed"
	case errors.Is(err, ErrEmptyResponse):
		return "Empty response from LLM"
	case errors.Is(err, ErrInvalidJSON):
		return "LLM returned invalid JSON"
	case errors.Is(err, ErrInvalidShape):
		return "LLM plan failed validation"
	case errors.Is(err, ErrDisallowedTool):
		return err.Error()
	case errors.Is(err, ErrInsecureURL):
		return "LLM suggested non-HTTPS URL"
	case errors.Is(err, ErrPrivateNetwork):
		return "LLM suggested private network access"
	case errors.Is(err, ErrTooManySteps):
		return "LLM plan has too many steps"
	default:
		return "LLM planning failed"
	}
}
