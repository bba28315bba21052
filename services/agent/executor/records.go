// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package executor interprets a validated plan step by step: resolving
// templated references from prior step output, enforcing per-tenant
// quota, invoking tools, recording auditable step state, and synthesizing
// the final answer with citations.
//
// Execution within one job is strictly sequential; step N's record
// reaches a terminal state before step N+1 begins. Across jobs, many
// executor instances run concurrently and share only the quota gate and
// the tool layer's internal services.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// StepStatus is the execution state of one step.
//
// Transitions are only pending -> running -> {done, error}. Terminal
// states are immutable. A step never attempted stays pending for the
// lifetime of the run.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusDone    StepStatus = "done"
	StatusError   StepStatus = "error"
)

// PlannerStepTool is the pseudo-tool name used for the step-0 record that
// captures the planning phase.
const PlannerStepTool = "planner"

// StepExecutionRecord is the auditable state of one step.
//
// OutputSummary and Error are secret-scrubbed and capped at 500 chars
// before they reach this struct; raw tool output never appears here.
type StepExecutionRecord struct {
	ID            string       `json:"id"`
	JobID         string       `json:"job_id"`
	StepNumber    int          `json:"step_number"`
	Tool          tools.ToolID `json:"tool"`
	InputSummary  string       `json:"input_summary,omitempty"`
	OutputSummary string       `json:"output_summary,omitempty"`
	Status        StepStatus   `json:"status"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	StartedAt     time.Time    `json:"started_at,omitzero"`
	CompletedAt   time.Time    `json:"completed_at,omitzero"`
	DurationMS    int64        `json:"duration_ms"`
}

// Citation is a provenance pair surfaced in the final output.
//
// The run-level citation list is deduplicated by exact URL with the first
// occurrence winning, and capped at 10 entries.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ExecutionResult is produced exactly once per run, at success or at the
// first failure.
type ExecutionResult struct {
	Success     bool                  `json:"success"`
	FinalOutput string                `json:"final_output,omitempty"`
	Error       string                `json:"error,omitempty"`
	Steps       []StepExecutionRecord `json:"steps,omitempty"`
}

// ToolInvoker is the external tool contract the executor consumes. It
// may fail; tool implementations enforce their own safety policy
// independently of plan-time validation.
type ToolInvoker interface {
	Invoke(ctx context.Context, tool tools.ToolID, input map[string]any) (map[string]any, error)
}

// QuotaGate guards per-tenant usage. CheckAndReserve is called once per
// step before invocation; a denial aborts the entire run.
//
// Implementations must be safe to call from many concurrent executor
// instances.
type QuotaGate interface {
	// CheckAndReserve reports whether the tenant may invoke another tool.
	// On denial, reason carries a user-safe message.
	CheckAndReserve(ctx context.Context, tenantID string) (allowed bool, reason string)

	// Record accounts a completed invocation and the bytes it fetched.
	Record(ctx context.Context, tenantID string, tool tools.ToolID, bytesFetched int)
}

// Sink receives plan metadata, step records, and the final output for
// persistence. The executor defines what it emits, not how it is stored.
type Sink interface {
	// SaveStep upserts a step record keyed by (jobID, StepNumber).
	SaveStep(ctx context.Context, jobID string, record StepExecutionRecord) error

	// SaveFinalOutput stores the serialized final payload for a job.
	SaveFinalOutput(ctx context.Context, jobID string, finalOutput string) error
}

// plannerStepRecord builds the step-0 audit record for the planning phase.
// Planning metadata carries only failure classes, so the record is safe
// to persist as-is. A fallback still counts as done: the plan exists.
func plannerStepRecord(id, jobID string, meta planner.PlanMetadata, now time.Time) StepExecutionRecord {
	input, _ := json.Marshal(map[string]any{
		"type": "planner",
		"mode": meta.Mode,
	})

	output := map[string]any{
		"planner_mode": meta.Mode,
		"step_count":   meta.StepCount,
	}
	if meta.FallbackReason != "" {
		output["fallback_reason"] = meta.FallbackReason
	}
	if meta.Error != "" {
		output["error"] = meta.Error
	}
	outputJSON, _ := json.Marshal(output)

	return StepExecutionRecord{
		ID:            id,
		JobID:         jobID,
		StepNumber:    0,
		Tool:          PlannerStepTool,
		InputSummary:  string(input),
		OutputSummary: string(outputJSON),
		Status:        StatusDone,
		CreatedAt:     now,
		StartedAt:     now,
		CompletedAt:   now,
	}
}

// inputSummary builds the minimal, secret-free input description stored
// with a step record. Full inputs are never persisted.
func inputSummary(step planner.PlanStep) string {
	var summary map[string]any
	switch step.Tool {
	case tools.ToolHTTPFetch, tools.ToolWebPageText:
		url, _ := step.Input["url"].(string)
		if url == "" {
			url = "?"
		}
		summary = map[string]any{"url": url}
	case tools.ToolWebSearch:
		query, _ := step.Input["query"].(string)
		if len(query) > 50 {
			query = query[:50]
		}
		summary = map[string]any{"query": query}
	case tools.ToolWebSummarize:
		text, _ := step.Input["text"].(string)
		summary = map[string]any{"text_len": len(text)}
	case tools.ToolEcho:
		action, _ := step.Input["action"].(string)
		if action == "" {
			action = "echo"
		}
		summary = map[string]any{"action": action}
	case tools.ToolBuild:
		repo, _ := step.Input["repo_url"].(string)
		summary = map[string]any{"repo_url": repo}
	default:
		summary = map[string]any{"tool": string(step.Tool)}
	}
	encoded, _ := json.Marshal(summary)
	return string(encoded)
}
