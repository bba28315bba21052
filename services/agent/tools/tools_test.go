// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"errors"
	"testing"
)

func TestParseToolID(t *testing.T) {
	for _, name := range []string{"echo", "http_fetch", "web_search", "web_page_text", "web_summarize", "build_tool"} {
		if _, err := ParseToolID(name); err != nil {
			t.Errorf("ParseToolID(%q) unexpected error: %v", name, err)
		}
	}

	if _, err := ParseToolID("shell_exec"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
	if _, err := ParseToolID(""); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool for empty name, got %v", err)
	}
}

func TestURLInputField(t *testing.T) {
	cases := []struct {
		tool  ToolID
		field string
	}{
		{ToolHTTPFetch, "url"},
		{ToolWebPageText, "url"},
		{ToolBuild, "repo_url"},
		{ToolEcho, ""},
		{ToolWebSearch, ""},
		{ToolWebSummarize, ""},
	}
	for _, tc := range cases {
		if got := tc.tool.URLInputField(); got != tc.field {
			t.Errorf("%s.URLInputField() = %q, want %q", tc.tool, got, tc.field)
		}
		wantNet := tc.field != ""
		if got := tc.tool.IsNetworkTool(); got != wantNet {
			t.Errorf("%s.IsNetworkTool() = %v, want %v", tc.tool, got, wantNet)
		}
	}
}

func TestToolEcho(t *testing.T) {
	input := map[string]any{"prompt": "hello", "action": "process"}
	result, err := toolEcho(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	echoed, ok := result["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result map, got %T", result["result"])
	}
	if echoed["prompt"] != "hello" {
		t.Errorf("expected echoed prompt, got %v", echoed["prompt"])
	}
}

func TestStringInput(t *testing.T) {
	if _, err := stringInput(map[string]any{}, "url"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing field, got %v", err)
	}
	if _, err := stringInput(map[string]any{"url": 42}, "url"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for non-string, got %v", err)
	}
	got, err := stringInput(map[string]any{"url": "https://a.com"}, "url")
	if err != nil || got != "https://a.com" {
		t.Errorf("stringInput = %q, %v", got, err)
	}
}

func TestIntInput(t *testing.T) {
	// JSON numbers decode as float64.
	if got := intInput(map[string]any{"max_results": float64(7)}, "max_results", 5); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := intInput(map[string]any{}, "max_results", 5); got != 5 {
		t.Errorf("expected default 5, got %d", got)
	}
	if got := intInput(map[string]any{"max_results": "ten"}, "max_results", 5); got != 5 {
		t.Errorf("expected default for bad type, got %d", got)
	}
}
