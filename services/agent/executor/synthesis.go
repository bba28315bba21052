// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// maxCitations caps the citation list in the final output.
const maxCitations = 10

// emptyOutput is the degenerate payload when no steps produced results.
type emptyOutput struct {
	Summary   string     `json:"summary"`
	Citations []Citation `json:"citations"`
}

// finalOutput is the structured payload for a completed run.
type finalOutput struct {
	Summary   string     `json:"summary"`
	Bullets   []string   `json:"bullets"`
	Citations []Citation `json:"citations"`
}

// BuildFinalOutput reduces executed step results into the final payload.
//
// Description:
//
//	Pure and deterministic given identical inputs. The summary carries
//	one line per executed step, formatted by tool family. Bullets come
//	from the last summarize step's output, if any. Citations are
//	deduplicated by exact URL with first occurrence winning and capped
//	at 10. With no results at all, the output is exactly
//	{"summary":"No results generated.","citations":[]}.
//
// Inputs:
//   - prompt: The original user prompt. Reserved for future formats;
//     current summaries are derived from step results alone.
//   - plan: The executed plan, for per-step tool identity.
//   - results: Ordered results of successfully executed steps.
//   - citations: The run-level citation accumulator, in extraction order.
//
// Outputs:
//   - string: The serialized JSON payload.
func BuildFinalOutput(prompt string, plan planner.Plan, results []map[string]any, citations []Citation) string {
	if len(results) == 0 {
		encoded, _ := json.Marshal(emptyOutput{
			Summary:   "No results generated.",
			Citations: []Citation{},
		})
		return string(encoded)
	}

	var parts []string
	bullets := []string{}

	for i, result := range results {
		if i >= len(plan.Steps) {
			break
		}
		step := plan.Steps[i]

		switch step.Tool {
		case tools.ToolHTTPFetch:
			status := anyToString(result["status_code"])
			body, _ := result["body"].(string)
			parts = append(parts, fmt.Sprintf("Fetched URL (status %s): %s", status, excerptContent(body, 400)))

		case tools.ToolEcho:
			if echoed, ok := result["result"]; ok {
				encoded, _ := json.Marshal(echoed)
				text := string(encoded)
				if len(text) > 300 {
					text = text[:300]
				}
				parts = append(parts, fmt.Sprintf("Echo result: %s", text))
			} else {
				parts = append(parts, fmt.Sprintf("Step %d completed", i+1))
			}

		case tools.ToolWebSearch:
			if count := resultCount(result); count > 0 {
				parts = append(parts, fmt.Sprintf("Found %d search results", count))
			}

		case tools.ToolWebPageText:
			title, _ := result["title"].(string)
			text, _ := result["text"].(string)
			parts = append(parts, fmt.Sprintf("Extracted text from '%s' (%d chars)", title, len(text)))

		case tools.ToolWebSummarize:
			bullets = bulletList(result)
			method, _ := result["method"].(string)
			if method == "" {
				method = "unknown"
			}
			parts = append(parts, fmt.Sprintf("Generated %d summary bullets (%s)", len(bullets), method))

		case tools.ToolBuild:
			status, _ := result["status"].(string)
			if status == "" {
				status = "completed"
			}
			parts = append(parts, fmt.Sprintf("Build/test run %s", status))
		}
	}

	summary := strings.Join(parts, "\n")
	if summary == "" {
		summary = "Execution completed."
	}

	encoded, _ := json.Marshal(finalOutput{
		Summary:   summary,
		Bullets:   bullets,
		Citations: DedupCitations(citations),
	})
	return string(encoded)
}

// DedupCitations deduplicates by exact URL, first occurrence winning,
// capped at maxCitations. A non-nil empty slice is always returned so the
// JSON field serializes as [].
func DedupCitations(citations []Citation) []Citation {
	unique := make([]Citation, 0, len(citations))
	seen := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		unique = append(unique, c)
		if len(unique) == maxCitations {
			break
		}
	}
	return unique
}

// extractCitations appends https-scheme provenance from a tool result to
// the accumulator, in result order.
func extractCitations(tool tools.ToolID, result map[string]any, citations []Citation) []Citation {
	switch tool {
	case tools.ToolWebSearch:
		for _, entry := range resultEntries(result) {
			url, _ := entry["url"].(string)
			title, _ := entry["title"].(string)
			if strings.HasPrefix(url, "https://") {
				citations = append(citations, Citation{URL: url, Title: title})
			}
		}
	case tools.ToolWebPageText:
		url, _ := result["url"].(string)
		title, _ := result["title"].(string)
		if strings.HasPrefix(url, "https://") {
			citations = append(citations, Citation{URL: url, Title: title})
		}
	case tools.ToolHTTPFetch:
		url, _ := result["url"].(string)
		if strings.HasPrefix(url, "https://") {
			citations = append(citations, Citation{URL: url})
		}
	}
	return citations
}

// outputSummaryJSON builds the compact per-step output description stored
// with the step record. Raw bodies never appear here, only shapes and
// sizes.
func outputSummaryJSON(tool tools.ToolID, result map[string]any) string {
	var summary map[string]any

	switch tool {
	case tools.ToolHTTPFetch:
		body, _ := result["body"].(string)
		summary = map[string]any{
			"status_code": result["status_code"],
			"body_length": len(body),
		}

	case tools.ToolEcho:
		keys := []string{}
		if echoed, ok := result["result"].(map[string]any); ok {
			for k := range echoed {
				keys = append(keys, k)
			}
		}
		summary = map[string]any{"echoed": true, "keys": keys}

	case tools.ToolWebSearch:
		entries := resultEntries(result)
		urls := make([]string, 0, 5)
		for _, entry := range entries {
			if len(urls) == 5 {
				break
			}
			url, _ := entry["url"].(string)
			urls = append(urls, url)
		}
		summary = map[string]any{
			"result_count": len(entries),
			"urls":         urls,
		}

	case tools.ToolWebPageText:
		title, _ := result["title"].(string)
		if len(title) > 100 {
			title = title[:100]
		}
		text, _ := result["text"].(string)
		truncated, _ := result["truncated"].(bool)
		summary = map[string]any{
			"url":         result["url"],
			"title":       title,
			"text_length": len(text),
			"truncated":   truncated,
		}

	case tools.ToolWebSummarize:
		method, _ := result["method"].(string)
		if method == "" {
			method = "unknown"
		}
		summary = map[string]any{
			"bullet_count": len(bulletList(result)),
			"method":       method,
		}

	default:
		summary = map[string]any{"completed": true}
	}

	encoded, _ := json.Marshal(summary)
	return string(encoded)
}

// bytesFetched estimates the bytes a tool invocation pulled in, for quota
// accounting.
func bytesFetched(tool tools.ToolID, result map[string]any) int {
	switch tool {
	case tools.ToolHTTPFetch:
		body, _ := result["body"].(string)
		return len(body)
	case tools.ToolWebPageText:
		text, _ := result["text"].(string)
		return len(text)
	case tools.ToolWebSearch:
		total := 0
		for _, entry := range resultEntries(result) {
			snippet, _ := entry["snippet"].(string)
			total += len(snippet)
		}
		return total
	case tools.ToolWebSummarize:
		total := 0
		for _, b := range bulletList(result) {
			total += len(b)
		}
		return total
	default:
		return 0
	}
}

// excerptContent produces a short readable excerpt, breaking at a
// sentence boundary when one falls past the midpoint, else at a word
// boundary.
func excerptContent(content string, maxLength int) string {
	if content == "" {
		return ""
	}

	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= maxLength {
		return content
	}

	truncated := content[:maxLength]
	for _, end := range []string{". ", "! ", "? ", "\n"} {
		if lastEnd := strings.LastIndex(truncated, end); lastEnd > maxLength/2 {
			return strings.TrimSpace(truncated[:lastEnd+1]) + "..."
		}
	}

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxLength/2 {
		return strings.TrimSpace(truncated[:lastSpace]) + "..."
	}

	return truncated + "..."
}

// resultEntries normalizes a results array whether it was produced
// in-process or decoded from JSON.
func resultEntries(result map[string]any) []map[string]any {
	switch list := result["results"].(type) {
	case []map[string]any:
		return list
	case []any:
		entries := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if entry, ok := item.(map[string]any); ok {
				entries = append(entries, entry)
			}
		}
		return entries
	default:
		return nil
	}
}

// bulletList normalizes a bullets array from a summarize result.
func bulletList(result map[string]any) []string {
	switch list := result["bullets"].(type) {
	case []string:
		return list
	case []any:
		bullets := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				bullets = append(bullets, s)
			}
		}
		return bullets
	default:
		return []string{}
	}
}

func resultCount(result map[string]any) int {
	return len(resultEntries(result))
}

func anyToString(v any) string {
	if v == nil {
		return "?"
	}
	switch n := v.(type) {
	case string:
		return n
	case int:
		return fmt.Sprintf("%d", n)
	case float64:
		return fmt.Sprintf("%.0f", n)
	default:
		return fmt.Sprintf("%v", n)
	}
}
