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
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	defaultMaxResults = 5
	maxSearchResults  = 10

	defaultMaxChars = 20000

	defaultMaxBullets = 8
	maxBullets        = 15
)

// Summarizer produces bullet-point summaries via an LLM provider. A nil
// Summarizer (or one that errors) falls back to the scoring heuristic.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxBullets int) ([]string, error)
}

// toolWebSearch queries the DuckDuckGo HTML endpoint.
//
// Description:
//
//	Input: {"query": "string", "max_results": 5}
//	Output: {"results": [{"title", "url", "snippet"}]}
//
//	Result links are unwrapped from DuckDuckGo's redirect format and
//	non-HTTPS targets are skipped.
func toolWebSearch(ctx context.Context, input map[string]any) (map[string]any, error) {
	query, err := stringInput(input, "query")
	if err != nil {
		return nil, err
	}

	maxResults := intInput(input, "max_results", defaultMaxResults)
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := webClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	content, _, err := readLimited(resp.Body, maxDownloadSize)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	results := parseSearchResults(string(content), maxResults)

	slog.Debug("web_search completed",
		slog.Int("query_len", len(query)),
		slog.Int("results", len(results)),
	)

	return map[string]any{"results": results}, nil
}

// parseSearchResults extracts result entries from DuckDuckGo's HTML.
func parseSearchResults(doc string, maxResults int) []map[string]any {
	results := make([]map[string]any, 0, maxResults)

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return results
	}

	for _, resultDiv := range findAllByClass(root, "div", "result") {
		if len(results) >= maxResults {
			break
		}

		link := findFirstByClass(resultDiv, "a", "result__a")
		if link == nil {
			continue
		}

		title := strings.TrimSpace(nodeText(link))
		resultURL := unwrapRedirect(attrValue(link, "href"))

		if !strings.HasPrefix(resultURL, "https://") {
			continue
		}

		snippet := ""
		if snippetNode := findFirstByClass(resultDiv, "a", "result__snippet"); snippetNode != nil {
			snippet = strings.TrimSpace(nodeText(snippetNode))
		}

		if len(title) > 200 {
			title = title[:200]
		}
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}

		results = append(results, map[string]any{
			"title":   title,
			"url":     resultURL,
			"snippet": snippet,
		})
	}

	return results
}

// unwrapRedirect extracts the real target from DuckDuckGo's redirect links
// (//duckduckgo.com/l/?uddg=https%3A%2F%2F...). Non-redirect links pass
// through unchanged.
func unwrapRedirect(raw string) string {
	if !strings.Contains(raw, "duckduckgo.com/l/") || !strings.Contains(raw, "uddg=") {
		return raw
	}

	full := raw
	if !strings.HasPrefix(full, "http") {
		full = "https:" + full
	}
	parsed, err := url.Parse(full)
	if err != nil {
		return ""
	}
	target := parsed.Query().Get("uddg")
	if target == "" {
		return ""
	}
	return target
}

// toolWebPageText fetches a page and extracts readable text.
//
// Description:
//
//	Input: {"url": "https://...", "max_chars": 20000}
//	Output: {"url", "title", "text", "truncated"}
//
//	The URL passes egress validation first. Only HTML and plain-text
//	content types are accepted.
func toolWebPageText(ctx context.Context, input map[string]any) (map[string]any, error) {
	rawURL, err := stringInput(input, "url")
	if err != nil {
		return nil, err
	}

	maxChars := intInput(input, "max_chars", defaultMaxChars)
	if maxChars > maxTextExtract {
		maxChars = maxTextExtract
	}

	validated, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validated, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := webClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page fetch failed: status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, contentType)
	}

	content, _, err := readLimited(resp.Body, maxDownloadSize)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	title, text, truncated := extractTextFromHTML(string(content), maxChars)

	if len(title) > 200 {
		title = title[:200]
	}

	slog.Debug("web_page_text completed",
		slog.String("url", rawURL),
		slog.Int("text_len", len(text)),
		slog.Bool("truncated", truncated),
	)

	return map[string]any{
		"url":       rawURL,
		"title":     title,
		"text":      text,
		"truncated": truncated,
	}, nil
}

// toolWebSummarize reduces text to bullet points.
//
// Description:
//
//	Input: {"text": "plain text...", "max_bullets": 8}
//	Output: {"bullets": [...], "method": "llm" | "heuristic", "notes"?}
//
//	Uses the configured Summarizer when available; falls back to the
//	sentence-scoring heuristic on nil provider or provider error.
func toolWebSummarize(ctx context.Context, input map[string]any, summarizer Summarizer) (map[string]any, error) {
	text, err := stringInput(input, "text")
	if err != nil {
		return nil, err
	}

	max := intInput(input, "max_bullets", defaultMaxBullets)
	if max > maxBullets {
		max = maxBullets
	}

	var bullets []string
	method := "llm"

	if summarizer != nil {
		bullets, err = summarizer.Summarize(ctx, text, max)
		if err != nil {
			slog.Warn("llm summarize failed, falling back to heuristic",
				slog.String("error", err.Error()),
			)
			bullets = nil
		}
	}

	result := map[string]any{}
	if bullets == nil {
		bullets = heuristicSummarize(text, max)
		method = "heuristic"
		result["notes"] = "Summary generated using text extraction heuristics."
	}

	slog.Debug("web_summarize completed",
		slog.Int("text_len", len(text)),
		slog.Int("bullets", len(bullets)),
		slog.String("method", method),
	)

	result["bullets"] = bullets
	result["method"] = method
	return result, nil
}
