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
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

const (
	// maxFetchResponseSize caps the raw body returned by http_fetch.
	maxFetchResponseSize = 64 * 1024

	// maxDownloadSize caps the bytes read by the web tools before parsing.
	maxDownloadSize = 1 * 1024 * 1024

	fetchTimeout = 10 * time.Second
	webTimeout   = 15 * time.Second

	userAgent = "Mozilla/5.0 (compatible; AleutianAgent/1.0; +https://github.com/AleutianAI)"
)

// fetchClient is the client for http_fetch. Redirects are refused because
// a redirect target could point at a blocked address after validation.
var fetchClient = &http.Client{
	Timeout: fetchTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// webClient is the client for the web tools. Redirects are followed up to
// a small cap; search engines and publishers redirect routinely.
var webClient = &http.Client{
	Timeout: webTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	},
}

// readLimited reads up to max bytes from r and reports whether more
// remained.
func readLimited(r io.Reader, max int) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(max)+1))
	if err != nil {
		return nil, false, err
	}
	if len(data) > max {
		return data[:max], true, nil
	}
	return data, false, nil
}

// toolEcho returns the input back as {"result": input}.
func toolEcho(_ context.Context, input map[string]any) (map[string]any, error) {
	return map[string]any{"result": input}, nil
}

// toolHTTPFetch performs a guarded HTTPS GET.
//
// Description:
//
//	Input: {"url": "https://example.com/api"}
//	Output: {"url", "status_code", "content_type", "body", "truncated"}
//
//	The URL passes egress validation first (HTTPS only, no private or
//	loopback destinations). The body is capped at 64KB and returned as
//	UTF-8 text; binary bodies are replaced by a size marker.
func toolHTTPFetch(ctx context.Context, input map[string]any) (map[string]any, error) {
	rawURL, err := stringInput(input, "url")
	if err != nil {
		return nil, err
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

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	content, truncated, err := readLimited(resp.Body, maxFetchResponseSize)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	body := string(content)
	if !utf8.ValidString(body) {
		body = fmt.Sprintf("<binary data, %d bytes>", len(content))
	}

	return map[string]any{
		"url":          validated,
		"status_code":  resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"body":         body,
		"truncated":    truncated,
	}, nil
}
