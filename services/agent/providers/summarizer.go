// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
)

// summarizeSystemPrompt instructs the model to emit plain bullet lines,
// nothing else, so parsing stays trivial.
const summarizeSystemPrompt = `You summarize web content. Respond with concise bullet points only, one per line, each starting with "- ". No preamble, no closing remarks.`

// maxSummarizeInput caps the text sent to the provider; anything past
// this adds cost without improving a bullet summary.
const maxSummarizeInput = 12000

// Summarizer adapts a planner.Provider into the bullet-point summarizer
// the web_summarize tool consumes.
type Summarizer struct {
	provider planner.Provider
}

// NewSummarizer wraps a provider.
func NewSummarizer(provider planner.Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

// Summarize produces up to maxBullets bullet points for the text.
//
// Outputs:
//   - []string: The bullets, markers stripped.
//   - error: Non-nil when the provider fails or returns no usable lines,
//     in which case the caller falls back to heuristic extraction.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxBullets int) ([]string, error) {
	if len(text) > maxSummarizeInput {
		text = text[:maxSummarizeInput]
	}

	userPrompt := fmt.Sprintf("Summarize the following content in at most %d bullet points:\n\n%s",
		maxBullets, text)

	response, err := s.provider.Complete(ctx, summarizeSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("summarize completion: %w", err)
	}

	bullets := parseBullets(response, maxBullets)
	if len(bullets) == 0 {
		return nil, errors.New("summarize completion had no bullet lines")
	}
	return bullets, nil
}

// parseBullets extracts bullet lines from a completion, tolerating the
// common marker variants models produce despite instructions.
func parseBullets(response string, maxBullets int) []string {
	var bullets []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{"- ", "* ", "• "} {
			if rest, ok := strings.CutPrefix(line, marker); ok {
				line = strings.TrimSpace(rest)
				break
			}
		}
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == maxBullets {
			break
		}
	}
	return bullets
}
