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
	"strings"
	"testing"
)

func TestExtractTextFromHTML(t *testing.T) {
	doc := `<html><head><title>  Test Page  </title><style>.x{color:red}</style></head>
<body>
<nav>Home | About</nav>
<script>var tracking = true;</script>
<p>First paragraph with real     content.</p>
<p>Second paragraph.</p>
<footer>Copyright 2025</footer>
</body></html>`

	title, text, truncated := extractTextFromHTML(doc, 1000)

	if title != "Test Page" {
		t.Errorf("title = %q, want %q", title, "Test Page")
	}
	if truncated {
		t.Error("unexpected truncation")
	}
	if !strings.Contains(text, "First paragraph with real content.") {
		t.Errorf("expected collapsed paragraph text, got %q", text)
	}
	if strings.Contains(text, "tracking") || strings.Contains(text, "color:red") {
		t.Errorf("script/style content leaked into text: %q", text)
	}
	if strings.Contains(text, "Home | About") || strings.Contains(text, "Copyright") {
		t.Errorf("nav/footer content leaked into text: %q", text)
	}
}

func TestExtractTextFromHTML_Truncation(t *testing.T) {
	body := strings.Repeat("word ", 500)
	doc := "<html><body><p>" + body + "</p></body></html>"

	_, text, truncated := extractTextFromHTML(doc, 100)

	if !truncated {
		t.Error("expected truncation")
	}
	if len(text) > 104 {
		t.Errorf("text length %d exceeds cap", len(text))
	}
	if !strings.HasSuffix(text, "...") {
		t.Errorf("expected ellipsis suffix, got %q", text[len(text)-10:])
	}
}

const searchFixture = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgolang.org%2Fdoc%2F&amp;rut=abc">Go Documentation</a>
  <a class="result__snippet">The Go programming language docs.</a>
</div>
<div class="result">
  <a class="result__a" href="http://insecure.example.com/page">Insecure Result</a>
</div>
<div class="result">
  <a class="result__a" href="https://go.dev/blog/">The Go Blog</a>
  <a class="result__snippet">Articles about Go.</a>
</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	results := parseSearchResults(searchFixture, 5)

	if len(results) != 2 {
		t.Fatalf("expected 2 results (non-HTTPS skipped), got %d", len(results))
	}

	first := results[0]
	if first["url"] != "https://golang.org/doc/" {
		t.Errorf("redirect not unwrapped: %v", first["url"])
	}
	if first["title"] != "Go Documentation" {
		t.Errorf("title = %v", first["title"])
	}
	if first["snippet"] != "The Go programming language docs." {
		t.Errorf("snippet = %v", first["snippet"])
	}

	second := results[1]
	if second["url"] != "https://go.dev/blog/" {
		t.Errorf("direct link mishandled: %v", second["url"])
	}
}

func TestParseSearchResults_MaxResults(t *testing.T) {
	results := parseSearchResults(searchFixture, 1)
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestUnwrapRedirect(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com", "https://example.com"},
		{"https://example.com/direct", "https://example.com/direct"},
	}
	for _, tc := range cases {
		if got := unwrapRedirect(tc.in); got != tc.want {
			t.Errorf("unwrapRedirect(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
