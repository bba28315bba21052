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
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// Validation failure classes for untrusted plans. The raw model text never
// travels with these errors; only its failure class does.
var (
	// ErrEmptyResponse indicates the provider returned no text.
	ErrEmptyResponse = errors.New("empty response from LLM")

	// ErrInvalidJSON indicates the response was not parseable JSON.
	ErrInvalidJSON = errors.New("LLM returned invalid JSON")

	// ErrInvalidShape indicates parsed JSON that violates the plan schema
	// (missing fields, length caps, fewer than one step).
	ErrInvalidShape = errors.New("LLM plan failed validation")

	// ErrDisallowedTool indicates a step whose tool is outside the
	// allowlist.
	ErrDisallowedTool = errors.New("LLM suggested disallowed tool")

	// ErrInsecureURL indicates a network step with a non-HTTPS URL.
	ErrInsecureURL = errors.New("LLM suggested non-HTTPS URL")

	// ErrPrivateNetwork indicates a network step targeting a private,
	// loopback, or link-local destination.
	ErrPrivateNetwork = errors.New("LLM suggested private network access")

	// ErrTooManySteps indicates a plan exceeding the step bound.
	ErrTooManySteps = errors.New("LLM plan has too many steps")
)

// Schema caps for untrusted plans.
const (
	maxGoalLength = 1000
	maxWhyLength  = 500
	maxStepID     = 100
)

// untrustedStep and untrustedPlan model the raw provider output. They can
// only become a Plan through ValidateUntrusted; the executor never accepts
// them directly.
type untrustedStep struct {
	ID    int            `json:"id"`
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
	Why   string         `json:"why"`
}

type untrustedPlan struct {
	Goal  string          `json:"goal"`
	Steps []untrustedStep `json:"steps"`
}

// ValidateUntrusted turns raw provider text into a validated Plan.
//
// Description:
//
//	A total function over the untrusted response:
//	  1. Strip markdown code fencing if present.
//	  2. Parse as JSON.
//	  3. Validate shape: goal and why caps, step id range, at least one
//	     step, every step carrying a tool and input.
//	  4. Check every step's tool against the allowlist. The first
//	     violation aborts; remaining steps are not inspected.
//	  5. For network tools, require an https URL and a destination
//	     outside private, loopback, and link-local ranges. This check is
//	     derived from the parsed structure, never from the model's own
//	     claims about safety.
//	  6. Enforce the step bound.
//
// Inputs:
//   - raw: The provider's response text, untrusted.
//   - allowed: The tool allowlist.
//   - maxSteps: Upper bound on plan length.
//
// Outputs:
//   - Plan: A Mode=ModeLLM plan when every gate passes.
//   - error: One of the package's validation sentinels, wrapped with a
//     diagnostic that names the failure class only.
//
// Thread Safety: Pure function, safe for concurrent use.
func ValidateUntrusted(raw string, allowed []tools.ToolID, maxSteps int) (Plan, error) {
	if strings.TrimSpace(raw) == "" {
		return Plan{}, ErrEmptyResponse
	}

	jsonText := stripCodeFence(raw)

	var parsed untrustedPlan
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return Plan{}, fmt.Errorf("%w: %s", ErrInvalidJSON, jsonFailureClass(err))
	}

	if err := validateShape(parsed); err != nil {
		return Plan{}, err
	}

	set := allowSet(allowed)
	steps := make([]PlanStep, 0, len(parsed.Steps))
	for _, step := range parsed.Steps {
		tool, err := tools.ParseToolID(step.Tool)
		if err != nil {
			return Plan{}, fmt.Errorf("%w: %q", ErrDisallowedTool, step.Tool)
		}
		if _, ok := set[tool]; !ok {
			return Plan{}, fmt.Errorf("%w: %q", ErrDisallowedTool, step.Tool)
		}

		if field := tool.URLInputField(); field != "" {
			if err := checkStepURL(step.Input, field); err != nil {
				return Plan{}, err
			}
		}

		steps = append(steps, PlanStep{
			Tool:        tool,
			Input:       step.Input,
			Description: step.Why,
		})
	}

	if len(steps) > maxSteps {
		return Plan{}, fmt.Errorf("%w: %d > %d", ErrTooManySteps, len(steps), maxSteps)
	}

	return Plan{
		Steps:     steps,
		Reasoning: parsed.Goal,
		Mode:      ModeLLM,
	}, nil
}

// validateShape enforces the plan schema independent of tool semantics.
func validateShape(p untrustedPlan) error {
	if p.Goal == "" {
		return fmt.Errorf("%w: missing goal", ErrInvalidShape)
	}
	if len(p.Goal) > maxGoalLength {
		return fmt.Errorf("%w: goal exceeds %d chars", ErrInvalidShape, maxGoalLength)
	}
	if len(p.Steps) < 1 {
		return fmt.Errorf("%w: plan has no steps", ErrInvalidShape)
	}
	for i, step := range p.Steps {
		if step.ID < 1 || step.ID > maxStepID {
			return fmt.Errorf("%w: step %d has invalid id", ErrInvalidShape, i+1)
		}
		if step.Tool == "" {
			return fmt.Errorf("%w: step %d missing tool", ErrInvalidShape, i+1)
		}
		if step.Input == nil {
			return fmt.Errorf("%w: step %d missing input", ErrInvalidShape, i+1)
		}
		if len(step.Why) > maxWhyLength {
			return fmt.Errorf("%w: step %d why exceeds %d chars", ErrInvalidShape, i+1, maxWhyLength)
		}
	}
	return nil
}

// checkStepURL validates the destination of a network tool step.
//
// This is the plan-time defensive check; the tool layer re-validates with
// DNS resolution at invocation time. Template placeholders are accepted
// here because their targets are unknowable until execution -- the
// resolved URL still passes the invocation-time guard.
func checkStepURL(input map[string]any, field string) error {
	raw, _ := input[field].(string)

	if strings.HasPrefix(raw, "{{") && strings.HasSuffix(raw, "}}") {
		return nil
	}

	if !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("%w: %s requires an https:// URL", ErrInsecureURL, field)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: unparseable URL", ErrInsecureURL)
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") || hostname == "localhost.localdomain" {
		return ErrPrivateNetwork
	}

	if addr, err := netip.ParseAddr(hostname); err == nil {
		if tools.IsIPBlocked(addr.String()) {
			return ErrPrivateNetwork
		}
	}

	return nil
}

// stripCodeFence removes a markdown code block wrapper from a response.
// Text outside the first fenced block is discarded.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	var inner []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "```") && !inBlock:
			inBlock = true
		case strings.HasPrefix(line, "```") && inBlock:
			return strings.Join(inner, "\n")
		case inBlock:
			inner = append(inner, line)
		}
	}
	return strings.Join(inner, "\n")
}

// jsonFailureClass reduces a JSON error to a short class name so no
// adversarial response text rides along in diagnostics.
func jsonFailureClass(err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("type mismatch at field %q", typeErr.Field)
	}
	return "parse error"
}
