// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools implements the agent's tool layer: a closed set of tool
// identifiers, per-tool safety policy (HTTPS-only egress with private
// network blocking), per-tool rate limiting, and a TTL result cache.
//
// Tools are invoked through the Registry, which implements the Invoker
// interface consumed by the executor. Unknown tool names are a rejectable
// case at plan-validation time; the Registry still defends against them
// with a typed error.
package tools

import (
	"context"
	"errors"
	"fmt"
)

// ToolID identifies a tool in the closed tool enumeration.
//
// Representing tools as a named type rather than free-form strings makes
// an unknown tool a validation-time rejection instead of a runtime lookup
// failure.
type ToolID string

// The closed set of tool identifiers.
const (
	// ToolEcho returns its input unchanged. Used for clarification steps.
	ToolEcho ToolID = "echo"

	// ToolHTTPFetch performs a guarded HTTPS GET and returns the raw body.
	ToolHTTPFetch ToolID = "http_fetch"

	// ToolWebSearch queries the DuckDuckGo HTML endpoint and returns
	// structured results.
	ToolWebSearch ToolID = "web_search"

	// ToolWebPageText fetches a page and extracts readable text.
	ToolWebPageText ToolID = "web_page_text"

	// ToolWebSummarize reduces text to bullet points, via LLM when a
	// provider is configured and a scoring heuristic otherwise.
	ToolWebSummarize ToolID = "web_summarize"

	// ToolBuild runs build/test operations against a recognized repository
	// URL. It is planned but only invocable when an operator registers a
	// build backend; the default registry does not carry one.
	ToolBuild ToolID = "build_tool"
)

// knownTools is the set of identifiers the planner may emit.
var knownTools = map[ToolID]struct{}{
	ToolEcho:         {},
	ToolHTTPFetch:    {},
	ToolWebSearch:    {},
	ToolWebPageText:  {},
	ToolWebSummarize: {},
	ToolBuild:        {},
}

// DefaultAllowedTools is the standard tool allowlist for agent planning.
// build_tool is deliberately absent; operators opt in via configuration.
var DefaultAllowedTools = []ToolID{
	ToolEcho, ToolHTTPFetch, ToolWebSearch, ToolWebPageText, ToolWebSummarize,
}

// Sentinel errors for the tool layer.
var (
	// ErrUnknownTool indicates a tool name outside the closed enumeration
	// or a known tool with no registered implementation.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidInput indicates a tool input map missing required fields
	// or carrying wrongly-typed values.
	ErrInvalidInput = errors.New("invalid tool input")

	// ErrBlockedDestination indicates a URL that failed egress policy
	// (non-HTTPS scheme, blocked hostname, or private-network address).
	ErrBlockedDestination = errors.New("blocked destination")

	// ErrRateLimited indicates the per-tool rate limiter denied the call.
	ErrRateLimited = errors.New("tool rate limited")
)

// ParseToolID validates a raw string against the closed tool enumeration.
//
// Inputs:
//   - raw: The candidate tool name, typically from an untrusted plan.
//
// Outputs:
//   - ToolID: The validated identifier.
//   - error: ErrUnknownTool (wrapped with the offending name) if raw is
//     not a member of the enumeration.
func ParseToolID(raw string) (ToolID, error) {
	id := ToolID(raw)
	if _, ok := knownTools[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, raw)
	}
	return id, nil
}

// IsNetworkTool reports whether the tool reaches the network with a
// caller-supplied URL. These tools get defensive URL re-validation at
// plan time in addition to the egress checks at invocation time.
func (t ToolID) IsNetworkTool() bool {
	return t.URLInputField() != ""
}

// URLInputField returns the name of the input field carrying the
// destination URL for network tools, or "" for tools that take no URL.
func (t ToolID) URLInputField() string {
	switch t {
	case ToolHTTPFetch, ToolWebPageText:
		return "url"
	case ToolBuild:
		return "repo_url"
	default:
		return ""
	}
}

// Invoker is the capability interface the executor consumes.
//
// Description:
//
//	Implementations run the named tool with the given input map and
//	return the tool's structured result. The input map is the resolved
//	step input (template placeholders already substituted).
//
// Thread Safety: Implementations must be safe for concurrent use; many
// executor instances invoke tools simultaneously.
type Invoker interface {
	Invoke(ctx context.Context, tool ToolID, input map[string]any) (map[string]any, error)
}

// stringInput extracts a required string field from a tool input map.
func stringInput(input map[string]any, field string) (string, error) {
	v, ok := input[field]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidInput, field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %q must be a non-empty string", ErrInvalidInput, field)
	}
	return s, nil
}

// intInput extracts an optional integer field, returning def when absent.
// JSON decoding yields float64 for numbers, so both forms are accepted.
func intInput(input map[string]any, field string, def int) int {
	v, ok := input[field]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}
