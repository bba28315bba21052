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
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

const validPlanJSON = `{
  "goal": "fetch the example page",
  "steps": [
    {"id": 1, "tool": "http_fetch", "input": {"url": "https://example.com"}, "why": "get the page"}
  ]
}`

func TestValidateUntrusted_ValidPlan(t *testing.T) {
	plan, err := ValidateUntrusted(validPlanJSON, allTools, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Mode != ModeLLM {
		t.Errorf("mode = %s, want llm", plan.Mode)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("steps = %d", len(plan.Steps))
	}
	if plan.Steps[0].Tool != tools.ToolHTTPFetch {
		t.Errorf("tool = %s", plan.Steps[0].Tool)
	}
	if plan.Reasoning != "fetch the example page" {
		t.Errorf("reasoning = %q", plan.Reasoning)
	}
	if plan.Steps[0].Description != "get the page" {
		t.Errorf("description = %q", plan.Steps[0].Description)
	}
}

func TestValidateUntrusted_MarkdownFence(t *testing.T) {
	fenced := "```json\n" + validPlanJSON + "\n```"
	plan, err := ValidateUntrusted(fenced, allTools, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Errorf("steps = %d", len(plan.Steps))
	}
}

func TestValidateUntrusted_EmptyResponse(t *testing.T) {
	if _, err := ValidateUntrusted("   ", allTools, 3); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestValidateUntrusted_InvalidJSON(t *testing.T) {
	_, err := ValidateUntrusted("I think the plan should be: fetch stuff", allTools, 3)
	if !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
	// The raw response text never rides along in the diagnostic.
	if strings.Contains(err.Error(), "fetch stuff") {
		t.Errorf("error leaks raw response: %v", err)
	}
}

func TestValidateUntrusted_ShapeViolations(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing goal", `{"steps":[{"id":1,"tool":"echo","input":{},"why":"x"}]}`},
		{"no steps", `{"goal":"g","steps":[]}`},
		{"bad id", `{"goal":"g","steps":[{"id":0,"tool":"echo","input":{},"why":"x"}]}`},
		{"missing tool", `{"goal":"g","steps":[{"id":1,"input":{},"why":"x"}]}`},
		{"missing input", `{"goal":"g","steps":[{"id":1,"tool":"echo","why":"x"}]}`},
		{"goal too long", `{"goal":"` + strings.Repeat("g", 1001) + `","steps":[{"id":1,"tool":"echo","input":{},"why":"x"}]}`},
		{"why too long", `{"goal":"g","steps":[{"id":1,"tool":"echo","input":{},"why":"` + strings.Repeat("w", 501) + `"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateUntrusted(tc.raw, allTools, 3); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
		})
	}
}

func TestValidateUntrusted_DisallowedTool(t *testing.T) {
	raw := `{"goal":"g","steps":[
	  {"id":1,"tool":"echo","input":{},"why":"ok"},
	  {"id":2,"tool":"shell_exec","input":{"cmd":"rm -rf /"},"why":"bad"}
	]}`
	_, err := ValidateUntrusted(raw, allTools, 3)
	if !errors.Is(err, ErrDisallowedTool) {
		t.Fatalf("expected ErrDisallowedTool, got %v", err)
	}
	// The fallback reason names which tool was disallowed.
	if !strings.Contains(err.Error(), "shell_exec") {
		t.Errorf("error does not name the offending tool: %v", err)
	}
}

func TestValidateUntrusted_ToolNotInAllowlist(t *testing.T) {
	// web_search is a known tool but absent from this allowlist.
	raw := `{"goal":"g","steps":[{"id":1,"tool":"web_search","input":{"query":"x"},"why":"w"}]}`
	_, err := ValidateUntrusted(raw, []tools.ToolID{tools.ToolEcho}, 3)
	if !errors.Is(err, ErrDisallowedTool) {
		t.Errorf("expected ErrDisallowedTool, got %v", err)
	}
}

func TestValidateUntrusted_NonHTTPSURL(t *testing.T) {
	raw := `{"goal":"g","steps":[{"id":1,"tool":"http_fetch","input":{"url":"http://example.com"},"why":"w"}]}`
	if _, err := ValidateUntrusted(raw, allTools, 3); !errors.Is(err, ErrInsecureURL) {
		t.Errorf("expected ErrInsecureURL, got %v", err)
	}
}

func TestValidateUntrusted_MissingURL(t *testing.T) {
	raw := `{"goal":"g","steps":[{"id":1,"tool":"http_fetch","input":{},"why":"w"}]}`
	if _, err := ValidateUntrusted(raw, allTools, 3); !errors.Is(err, ErrInsecureURL) {
		t.Errorf("expected ErrInsecureURL for missing url, got %v", err)
	}
}

func TestValidateUntrusted_PrivateNetwork(t *testing.T) {
	for _, target := range []string{
		"https://192.168.1.1/x",
		"https://127.0.0.1/",
		"https://10.0.0.5/api",
		"https://172.16.0.1/",
		"https://169.254.1.1/",
		"https://[::1]/",
		"https://localhost/admin",
	} {
		raw := `{"goal":"g","steps":[{"id":1,"tool":"http_fetch","input":{"url":"` + target + `"},"why":"w"}]}`
		if _, err := ValidateUntrusted(raw, allTools, 3); !errors.Is(err, ErrPrivateNetwork) {
			t.Errorf("expected ErrPrivateNetwork for %s, got %v", target, err)
		}
	}
}

func TestValidateUntrusted_TemplateURLAccepted(t *testing.T) {
	raw := `{"goal":"g","steps":[
	  {"id":1,"tool":"web_search","input":{"query":"x"},"why":"search"},
	  {"id":2,"tool":"web_page_text","input":{"url":"{{search_result_0_url}}"},"why":"read"}
	]}`
	plan, err := ValidateUntrusted(raw, allTools, 3)
	if err != nil {
		t.Fatalf("template URL must pass plan-time validation: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Errorf("steps = %d", len(plan.Steps))
	}
}

func TestValidateUntrusted_TooManySteps(t *testing.T) {
	raw := `{"goal":"g","steps":[
	  {"id":1,"tool":"echo","input":{},"why":"a"},
	  {"id":2,"tool":"echo","input":{},"why":"b"},
	  {"id":3,"tool":"echo","input":{},"why":"c"}
	]}`
	if _, err := ValidateUntrusted(raw, allTools, 2); !errors.Is(err, ErrTooManySteps) {
		t.Errorf("expected ErrTooManySteps, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing prose ignored", "```\n{\"a\":1}\n```\nHope this helps!", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFence(tc.in); got != tc.want {
				t.Errorf("stripCodeFence = %q, want %q", got, tc.want)
			}
		})
	}
}
