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
	"strconv"
	"strings"
)

// referenceKind is the closed set of template reference forms.
type referenceKind int

const (
	refNone referenceKind = iota
	refSearchResultURL
	refPreviousText
)

// templateRef is a parsed template placeholder. The grammar is closed:
// search_result_<idx>_url indexes the most recent step's results array,
// previous_text takes the text (else body) field of the most recent
// result. Anything else is not a reference.
type templateRef struct {
	kind  referenceKind
	index int
}

// parseTemplateRef parses a field value as a template placeholder.
//
// Returns kind refNone when the value is not of the form {{reference}}
// or the reference is outside the grammar. Parsed once per field at
// resolution time, not re-matched per access.
func parseTemplateRef(value string) templateRef {
	if !strings.HasPrefix(value, "{{") || !strings.HasSuffix(value, "}}") {
		return templateRef{kind: refNone}
	}
	ref := value[2 : len(value)-2]

	if ref == "previous_text" {
		return templateRef{kind: refPreviousText}
	}

	if rest, ok := strings.CutPrefix(ref, "search_result_"); ok {
		if idxText, ok := strings.CutSuffix(rest, "_url"); ok {
			idx, err := strconv.Atoi(idxText)
			if err == nil && idx >= 0 {
				return templateRef{kind: refSearchResultURL, index: idx}
			}
		}
	}

	return templateRef{kind: refNone}
}

// resolveStepInput substitutes template placeholders in a step's input
// using prior step results.
//
// Description:
//
//	Each string field equal to a placeholder is resolved against the most
//	recent step's result. An unrecognized reference, or a reference whose
//	source field is absent, leaves the literal placeholder string in
//	place; resolution never fails a step. The input map is copied, never
//	mutated.
//
// Inputs:
//   - input: The step's raw input map, possibly holding placeholders.
//   - results: Results of prior steps, in execution order.
//
// Outputs:
//   - map[string]any: A new map with resolvable placeholders substituted.
func resolveStepInput(input map[string]any, results []map[string]any) map[string]any {
	resolved := make(map[string]any, len(input))
	for key, value := range input {
		resolved[key] = value

		text, ok := value.(string)
		if !ok {
			continue
		}

		ref := parseTemplateRef(text)
		if ref.kind == refNone || len(results) == 0 {
			continue
		}
		last := results[len(results)-1]

		switch ref.kind {
		case refSearchResultURL:
			if url, ok := searchResultURL(last, ref.index); ok {
				resolved[key] = url
			}
		case refPreviousText:
			if v, ok := last["text"].(string); ok {
				resolved[key] = v
			} else if v, ok := last["body"].(string); ok {
				resolved[key] = v
			}
		}
	}
	return resolved
}

// searchResultURL indexes into a result's results array and extracts the
// url field. Handles both []map[string]any (in-process results) and
// []any (results decoded from JSON).
func searchResultURL(result map[string]any, idx int) (string, bool) {
	switch list := result["results"].(type) {
	case []map[string]any:
		if idx < len(list) {
			url, ok := list[idx]["url"].(string)
			return url, ok && url != ""
		}
	case []any:
		if idx < len(list) {
			if entry, ok := list[idx].(map[string]any); ok {
				url, ok := entry["url"].(string)
				return url, ok && url != ""
			}
		}
	}
	return "", false
}
