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

func TestHeuristicSummarize(t *testing.T) {
	text := "The study found that caching improves throughput significantly. " +
		"Researchers observed a threefold latency reduction in production workloads. " +
		"Click here to subscribe to our newsletter. " +
		"According to the main results, memory pressure remained stable. " +
		"Ok. " +
		"This additional sentence provides important context about key research methods used."

	bullets := heuristicSummarize(text, 3)

	if len(bullets) == 0 {
		t.Fatal("expected at least one bullet")
	}
	if len(bullets) > 3 {
		t.Errorf("expected at most 3 bullets, got %d", len(bullets))
	}
	for _, b := range bullets {
		if strings.Contains(strings.ToLower(b), "subscribe") {
			t.Errorf("boilerplate sentence selected: %q", b)
		}
		if len(b) < 20 {
			t.Errorf("too-short sentence selected: %q", b)
		}
	}
}

func TestHeuristicSummarize_Dedupe(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog today. " +
		"The quick brown fox jumps over the lazy dog yesterday. " +
		"Completely different sentence about database internals and indexing."

	bullets := heuristicSummarize(text, 5)

	foxCount := 0
	for _, b := range bullets {
		if strings.Contains(b, "quick brown fox") {
			foxCount++
		}
	}
	if foxCount > 1 {
		t.Errorf("near-duplicate sentences not deduplicated: %v", bullets)
	}
}

func TestHeuristicSummarize_Empty(t *testing.T) {
	if got := heuristicSummarize("", 5); len(got) != 0 {
		t.Errorf("expected no bullets for empty text, got %v", got)
	}
	if got := heuristicSummarize("some text here that is long enough to qualify", 0); len(got) != 0 {
		t.Errorf("expected no bullets for zero max, got %v", got)
	}
}
