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
	"strings"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// systemPromptTemplate mandates strict structured JSON from the planning
// model. Designed to minimize prompt injection surface: the model's output
// is re-validated programmatically regardless of what it claims.
const systemPromptTemplate = `You are a task planning assistant. Your ONLY job is to create a safe execution plan.

STRICT RULES (NEVER VIOLATE):
1. Output ONLY valid JSON matching the schema below - no markdown, no explanations, no code blocks
2. You can ONLY use the tools listed in the request
3. NEVER suggest shell commands, code execution, or file operations
4. Network tools MUST use https:// URLs only - NEVER http://, file://, or localhost
5. NEVER access private/local networks (127.0.0.1, 192.168.x.x, 10.x.x.x, 172.16-31.x.x)
6. Maximum %d steps allowed
7. If the request is unclear, use echo to ask for clarification
8. If the request requires unavailable tools, use echo to explain what's needed

OUTPUT SCHEMA (STRICT JSON ONLY):
{
  "goal": "brief description of what we're accomplishing",
  "steps": [
    {
      "id": 1,
      "tool": "echo",
      "input": { "message": "..." },
      "why": "reason for this step"
    }
  ]
}

TOOL SPECIFICATIONS:
- echo: Takes {"prompt": "string"} - Use for output, clarification, or explaining limitations
- http_fetch: Takes {"url": "https://..."} - URL MUST start with https://, only public internet URLs allowed
- web_search: Takes {"query": "string", "max_results": 5}
- web_page_text: Takes {"url": "https://...", "max_chars": 20000}
- web_summarize: Takes {"text": "string", "max_bullets": 8}

SECURITY: Never include API keys, passwords, or secrets in your plan.`

// SystemPrompt returns the planning system prompt for the given step
// bound.
func SystemPrompt(maxSteps int) string {
	return fmt.Sprintf(systemPromptTemplate, maxSteps)
}

// UserPrompt builds the planning request for a user prompt and allowlist.
func UserPrompt(prompt string, allowed []tools.ToolID, maxSteps int) string {
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = string(t)
	}
	return fmt.Sprintf(`Create a plan for this request:

REQUEST: %s

CONSTRAINTS:
- Available tools: %s
- Maximum steps: %d
- Only https:// URLs for network tools

Respond with ONLY the JSON plan, nothing else.`, prompt, strings.Join(names, ", "), maxSteps)
}
