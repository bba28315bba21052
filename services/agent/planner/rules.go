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
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// urlPattern finds https URLs in prose. Trailing sentence punctuation is
// trimmed separately because it usually belongs to the sentence, not the
// URL.
var urlPattern = regexp.MustCompile(`https://[^\s<>"'\)\]]+`)

// repoURLPattern recognizes GitHub/GitLab repository URLs for build
// requests.
var repoURLPattern = regexp.MustCompile(`(?i)https://(?:github\.com|gitlab\.com)/[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+(?:\.git)?`)

var (
	fetchKeywords = []string{
		"fetch", "get", "retrieve", "download", "read", "load",
		"scrape", "crawl", "access", "visit", "open", "check",
		"what is at", "what's at", "content of", "contents of",
		"summarize", "summary of",
	}

	echoKeywords = []string{
		"echo", "repeat", "say", "return", "format", "transform",
		"convert", "rephrase", "reword",
	}

	searchKeywords = []string{
		"search", "find", "look up", "lookup", "research", "discover",
		"what is", "what are", "who is", "when did", "where is", "how to",
		"latest", "recent", "news about", "information about", "info about",
		"tell me about", "learn about",
	}

	summarizeKeywords = []string{
		"summarize", "summary", "summarise", "brief", "tldr", "tl;dr",
		"key points", "main points", "overview", "digest",
	}

	buildKeywords = []string{
		"run tests", "run the tests", "execute tests", "run test",
		"verify build", "check build", "build project", "build the project",
		"run ci", "run pipeline", "execute pipeline",
		"test this repo", "test the repo", "test repository",
		"run pytest", "run npm test", "npm test", "pytest",
		"verify code", "check tests", "run lint", "lint code",
		"build and test", "test and build",
	}

	// queryPrefixes are leading phrases stripped from a prompt to derive a
	// search query.
	queryPrefixes = []string{
		"search for", "find", "look up", "research", "tell me about",
		"what is", "what are",
	}
)

// ExtractURLs returns the https URLs found in text, with trailing
// sentence punctuation trimmed.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,!?;:")
		if m != "" {
			urls = append(urls, m)
		}
	}
	return urls
}

// ExtractRepoURL returns the first GitHub/GitLab repository URL in the
// prompt with any .git suffix removed, or "".
func ExtractRepoURL(prompt string) string {
	match := repoURLPattern.FindString(prompt)
	if match == "" {
		return ""
	}
	return strings.TrimSuffix(match, ".git")
}

func containsAnyKeyword(prompt string, keywords []string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isFetchRequest(prompt string) bool     { return containsAnyKeyword(prompt, fetchKeywords) }
func isEchoRequest(prompt string) bool      { return containsAnyKeyword(prompt, echoKeywords) }
func isSearchRequest(prompt string) bool    { return containsAnyKeyword(prompt, searchKeywords) }
func isSummarizeRequest(prompt string) bool { return containsAnyKeyword(prompt, summarizeKeywords) }
func isBuildRequest(prompt string) bool     { return containsAnyKeyword(prompt, buildKeywords) }

// searchQuery derives a search query by stripping known leading phrases
// from the prompt. Prefixes are applied in order, each against the
// already-stripped remainder.
func searchQuery(prompt string) string {
	query := prompt
	for _, prefix := range queryPrefixes {
		if strings.HasPrefix(strings.ToLower(query), prefix) {
			query = strings.TrimSpace(query[len(prefix):])
		}
	}
	return query
}

// clip bounds a string for use in descriptions and reasoning.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// CreateRulePlan builds a plan from deterministic heuristics.
//
// Description:
//
//	The default planner. Never fails and never touches the network.
//	Intent is resolved by a fixed precedence order:
//	  1. Search intent, no URL: search, then optionally read the top
//	     result, then optionally summarize.
//	  2. URL with fetch/summarize intent: page-text extraction (preferred
//	     over raw fetch), optionally followed by summarize.
//	  3. Build intent: single build step for a recognized repository URL,
//	     or an echo clarification when no URL is extractable.
//	  4. URL with no specific intent: same tool preference as (2).
//	  5. Echo/format intent: single echo step.
//	  6. Search intent (residual): single search step.
//	  7. Default: echo clarification, or an empty plan without echo.
//	The step list is always truncated to maxSteps.
//
// Inputs:
//   - prompt: The user's natural-language request.
//   - allowed: The tool allowlist. Steps are only emitted for allowed tools.
//   - maxSteps: Upper bound on plan length.
//
// Outputs:
//   - Plan: A plan with Mode=ModeRules.
//
// Thread Safety: Pure function, safe for concurrent use.
func CreateRulePlan(prompt string, allowed []tools.ToolID, maxSteps int) Plan {
	urls := ExtractURLs(prompt)
	steps := []PlanStep{}
	reasoning := ""

	set := allowSet(allowed)
	hasWebSearch := has(set, tools.ToolWebSearch)
	hasWebPageText := has(set, tools.ToolWebPageText)
	hasWebSummarize := has(set, tools.ToolWebSummarize)
	hasHTTPFetch := has(set, tools.ToolHTTPFetch)
	hasEcho := has(set, tools.ToolEcho)
	hasBuild := has(set, tools.ToolBuild)

	wantSummary := isSummarizeRequest(prompt)
	wantSearch := isSearchRequest(prompt)
	wantFetch := isFetchRequest(prompt)
	wantBuild := isBuildRequest(prompt)

	switch {
	// Case 1: web research (search + read + summarize)
	case wantSearch && hasWebSearch && len(urls) == 0:
		query := searchQuery(prompt)

		steps = append(steps, PlanStep{
			Tool:        tools.ToolWebSearch,
			Input:       map[string]any{"query": query, "max_results": 3},
			Description: fmt.Sprintf("Search the web for: %s", clip(query, 50)),
		})

		if hasWebPageText && len(steps) < maxSteps {
			steps = append(steps, PlanStep{
				Tool:        tools.ToolWebPageText,
				Input:       map[string]any{"url": "{{search_result_0_url}}", "max_chars": 15000},
				Description: "Fetch and extract text from top search result",
			})
		}

		if wantSummary && hasWebSummarize && len(steps) < maxSteps {
			steps = append(steps, summarizeStep())
		}

		reasoning = fmt.Sprintf("Web research plan for query: %s", clip(query, 50))

	// Case 2: URL provided with fetch/summarize intent
	case len(urls) > 0 && (wantFetch || wantSummary):
		url := urls[0]
		steps = appendPageStep(steps, url, hasWebPageText, hasHTTPFetch)

		if wantSummary && hasWebSummarize && len(steps) < maxSteps {
			steps = append(steps, summarizeStep())
		}

		reasoning = fmt.Sprintf("Fetch and process URL: %s", url)

	// Case 3: build/test request (checked before generic URL handling)
	case wantBuild && hasBuild:
		if repoURL := ExtractRepoURL(prompt); repoURL != "" {
			steps = append(steps, PlanStep{
				Tool:        tools.ToolBuild,
				Input:       map[string]any{"repo_url": repoURL},
				Description: fmt.Sprintf("Run build/test operations for repository: %s", repoURL),
			})
			reasoning = fmt.Sprintf("Build/test plan for repository: %s", repoURL)
		} else {
			steps = append(steps, PlanStep{
				Tool: tools.ToolEcho,
				Input: map[string]any{
					"prompt":     prompt,
					"note":       "Unable to determine repository URL for build/test operations",
					"suggestion": "Try including a GitHub/GitLab repository URL in the prompt",
				},
				Description: "Return clarification for build/test request",
			})
			reasoning = "Could not determine repository URL for build/test request"
		}

	// Case 4: URL found but no explicit action
	case len(urls) > 0:
		url := urls[0]
		steps = appendPageStep(steps, url, hasWebPageText, hasHTTPFetch)
		reasoning = fmt.Sprintf("Found URL in prompt, fetching: %s", url)

	// Case 5: echo/repeat request
	case isEchoRequest(prompt) && hasEcho:
		steps = append(steps, PlanStep{
			Tool:        tools.ToolEcho,
			Input:       map[string]any{"prompt": prompt, "action": "process"},
			Description: "Process and return the requested content",
		})
		reasoning = "Detected echo/format request"

	// Case 6: general search request
	case wantSearch && hasWebSearch:
		steps = append(steps, PlanStep{
			Tool:        tools.ToolWebSearch,
			Input:       map[string]any{"query": prompt, "max_results": 5},
			Description: fmt.Sprintf("Search the web for: %s", clip(prompt, 50)),
		})
		reasoning = fmt.Sprintf("General web search for: %s", clip(prompt, 50))

	// Case 7: clarify intent
	default:
		if hasEcho {
			steps = append(steps, PlanStep{
				Tool: tools.ToolEcho,
				Input: map[string]any{
					"prompt":     prompt,
					"note":       "Unable to determine specific action from prompt",
					"suggestion": "Try: 'search for X', 'summarize URL', or include a URL",
				},
				Description: "Return clarification with the prompt",
			})
		}
		reasoning = "Could not determine specific action, returning clarification"
	}

	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}

	return Plan{Steps: steps, Reasoning: reasoning, Mode: ModeRules}
}

func has(set map[tools.ToolID]struct{}, t tools.ToolID) bool {
	_, ok := set[t]
	return ok
}

// appendPageStep adds the preferred page-reading step for a URL:
// web_page_text when allowed, http_fetch otherwise, nothing when neither.
func appendPageStep(steps []PlanStep, url string, hasWebPageText, hasHTTPFetch bool) []PlanStep {
	switch {
	case hasWebPageText:
		return append(steps, PlanStep{
			Tool:        tools.ToolWebPageText,
			Input:       map[string]any{"url": url, "max_chars": 20000},
			Description: fmt.Sprintf("Fetch and extract text from %s", url),
		})
	case hasHTTPFetch:
		return append(steps, PlanStep{
			Tool:        tools.ToolHTTPFetch,
			Input:       map[string]any{"url": url},
			Description: fmt.Sprintf("Fetch content from %s", url),
		})
	default:
		return steps
	}
}

func summarizeStep() PlanStep {
	return PlanStep{
		Tool:        tools.ToolWebSummarize,
		Input:       map[string]any{"text": "{{previous_text}}", "max_bullets": 5},
		Description: "Summarize the fetched content",
	}
}
