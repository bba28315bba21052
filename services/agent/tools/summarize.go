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
	"regexp"
	"sort"
	"strings"
)

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// boilerplateMarkers disqualify sentences that look like navigation or
// site chrome rather than content.
var boilerplateMarkers = []string{
	"click here", "read more", "subscribe", "cookie", "privacy policy",
}

// scoringKeywords give a small bonus to sentences likely to carry the
// article's substance.
var scoringKeywords = []string{
	"important", "key", "main", "significant", "research", "study",
	"found", "shows", "according",
}

type scoredSentence struct {
	score    int
	position int
	text     string
}

// heuristicSummarize extracts up to max key sentences from text.
//
// Description:
//
//	Sentences are scored on position (early sentences score higher),
//	length (medium-length preferred), and keyword presence, then the top
//	scorers are selected with a word-overlap deduplication pass. No
//	network or LLM involved.
//
// Thread Safety: Pure function, safe for concurrent use.
func heuristicSummarize(text string, max int) []string {
	if max <= 0 {
		return []string{}
	}

	sentences := splitSentences(text)

	candidates := make([]scoredSentence, 0, len(sentences))
	for i, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if len(sent) < 20 || len(sent) > 300 {
			continue
		}
		lower := strings.ToLower(sent)
		if containsAny(lower, boilerplateMarkers) {
			continue
		}

		score := 0
		if i < 5 {
			score += 5 - i
		}
		if len(sent) > 50 && len(sent) < 200 {
			score += 2
		}
		for _, kw := range scoringKeywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}

		candidates = append(candidates, scoredSentence{score: score, position: i, text: sent})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	selected := make([]string, 0, max)
	for _, cand := range candidates {
		if len(selected) >= max {
			break
		}
		if isNearDuplicate(cand.text, selected) {
			continue
		}
		selected = append(selected, cand.text)
	}

	return selected
}

// splitSentences breaks text on sentence-ending punctuation, keeping the
// terminator with the sentence it ends.
func splitSentences(text string) []string {
	indexes := sentenceSplit.FindAllStringIndex(text, -1)
	sentences := make([]string, 0, len(indexes)+1)
	start := 0
	for _, loc := range indexes {
		// loc[0]+1 keeps the punctuation mark with its sentence.
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// isNearDuplicate reports whether a sentence shares more than 70% of its
// words with an already selected sentence.
func isNearDuplicate(sent string, selected []string) bool {
	words := wordSet(sent)
	if len(words) == 0 {
		return false
	}
	for _, existing := range selected {
		overlap := 0
		for w := range wordSet(existing) {
			if _, ok := words[w]; ok {
				overlap++
			}
		}
		if float64(overlap)/float64(len(words)) > 0.7 {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
