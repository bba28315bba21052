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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
	"github.com/AleutianAI/AleutianAgent/services/agent/redact"
)

// maxStoredLength caps persisted output summaries and error messages.
const maxStoredLength = 500

// Executor runs validated plans with fail-fast semantics.
//
// Description:
//
//	One Executor can serve many concurrent runs; it owns no per-run
//	mutable state. All per-run state lives on the stack of Run.
//
// Thread Safety: Safe for concurrent use when its collaborators are.
type Executor struct {
	invoker ToolInvoker
	quota   QuotaGate
	sink    Sink
}

// NewExecutor builds an executor.
//
// Inputs:
//   - invoker: The tool layer. Must not be nil.
//   - quota: The per-tenant quota gate. Must not be nil.
//   - sink: The persistence sink for audit records. May be nil, in which
//     case records are kept only in the returned result.
func NewExecutor(invoker ToolInvoker, quota QuotaGate, sink Sink) *Executor {
	return &Executor{invoker: invoker, quota: quota, sink: sink}
}

// RunRequest carries everything one run needs.
type RunRequest struct {
	JobID    string
	TenantID string
	Prompt   string

	// Plan must have passed planning-side validation; the executor only
	// ever accepts the validated type.
	Plan planner.Plan

	// Metadata, when present, is recorded as the step-0 audit record.
	Metadata *planner.PlanMetadata
}

// Run executes a plan step by step.
//
// Description:
//
//	Steps run strictly in order. For each step: resolve template
//	placeholders from prior output, check quota, invoke the tool, record
//	the transition. The first failure of any kind aborts the run; later
//	steps remain pending because they may structurally depend on the
//	failed step's output. After a clean loop, the final payload is
//	synthesized and persisted.
//
//	Cancellation is coarse: it is observed between steps and prevents
//	the next step from starting, but cannot interrupt a step that is
//	already mid-invocation.
//
// Inputs:
//   - ctx: Context for cancellation and tracing.
//   - req: The run request.
//
// Outputs:
//   - ExecutionResult: Success iff every attempted step reached done.
//     The error message for a failed run is "Step <i> failed: <msg>"
//     with a secret-scrubbed, capped message.
func (e *Executor) Run(ctx context.Context, req RunRequest) ExecutionResult {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := otel.Tracer("aleutian.agent").Start(ctx, "executor.Executor.Run",
		oteltrace.WithAttributes(
			attribute.String("job_id", req.JobID),
			attribute.String("planner_mode", string(req.Plan.Mode)),
			attribute.Int("steps", len(req.Plan.Steps)),
		),
	)
	defer span.End()

	start := time.Now()
	log := slog.With(slog.String("job_id", req.JobID))

	records := e.initRecords(ctx, req)

	var (
		results   []map[string]any
		citations []Citation
	)

	for i := range req.Plan.Steps {
		stepNumber := i + 1
		step := req.Plan.Steps[i]
		record := &records.steps[i]

		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled before step", slog.Int("step", stepNumber))
			return e.fail(ctx, req, records, span, start, stepNumber, "job cancelled")
		}

		if allowed, reason := e.quota.CheckAndReserve(ctx, req.TenantID); !allowed {
			log.Warn("tool quota exceeded",
				slog.Int("step", stepNumber),
				slog.String("tenant_id", req.TenantID),
			)
			RecordRunAborted("quota")
			return e.fail(ctx, req, records, span, start, stepNumber, reason)
		}

		e.transitionRunning(ctx, req.JobID, record)

		resolvedInput := resolveStepInput(step.Input, results)

		result, err := e.invoker.Invoke(ctx, step.Tool, resolvedInput)
		if err != nil {
			msg := redact.ScrubAndCap(err.Error(), maxStoredLength)
			e.transitionError(ctx, req.JobID, record, msg)
			log.Error("step failed",
				slog.Int("step", stepNumber),
				slog.String("tool", string(step.Tool)),
				slog.String("error", msg),
			)
			RecordRunAborted("tool_error")
			return e.fail(ctx, req, records, span, start, stepNumber, msg)
		}

		results = append(results, result)
		e.quota.Record(ctx, req.TenantID, step.Tool, bytesFetched(step.Tool, result))
		citations = extractCitations(step.Tool, result, citations)

		summary := redact.ScrubAndCap(outputSummaryJSON(step.Tool, result), maxStoredLength)
		e.transitionDone(ctx, req.JobID, record, summary)
		RecordStepCompleted(string(step.Tool))

		log.Info("step done",
			slog.Int("step", stepNumber),
			slog.String("tool", string(step.Tool)),
			slog.Int64("duration_ms", record.DurationMS),
		)
	}

	final := BuildFinalOutput(req.Prompt, req.Plan, results, citations)
	if e.sink != nil {
		if err := e.sink.SaveFinalOutput(ctx, req.JobID, final); err != nil {
			log.Error("final output persistence failed", slog.String("error", err.Error()))
		}
	}

	RecordRunCompleted("success", time.Since(start))
	span.SetStatus(codes.Ok, "")
	log.Info("run completed",
		slog.Int("steps", len(req.Plan.Steps)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return ExecutionResult{
		Success:     true,
		FinalOutput: final,
		Steps:       records.all(),
	}
}

// runRecords holds the per-run audit records. Every planned step gets a
// pending record up front so an aborted run still shows the full shape
// of what was planned.
type runRecords struct {
	planner *StepExecutionRecord
	steps   []StepExecutionRecord
}

func (r *runRecords) all() []StepExecutionRecord {
	out := make([]StepExecutionRecord, 0, len(r.steps)+1)
	if r.planner != nil {
		out = append(out, *r.planner)
	}
	return append(out, r.steps...)
}

func (e *Executor) initRecords(ctx context.Context, req RunRequest) *runRecords {
	now := time.Now().UTC()
	records := &runRecords{}

	if req.Metadata != nil {
		rec := plannerStepRecord(uuid.New().String(), req.JobID, *req.Metadata, now)
		records.planner = &rec
		e.save(ctx, req.JobID, rec)
	}

	records.steps = make([]StepExecutionRecord, len(req.Plan.Steps))
	for i, step := range req.Plan.Steps {
		records.steps[i] = StepExecutionRecord{
			ID:           uuid.New().String(),
			JobID:        req.JobID,
			StepNumber:   i + 1,
			Tool:         step.Tool,
			InputSummary: inputSummary(step),
			Status:       StatusPending,
			CreatedAt:    now,
		}
		e.save(ctx, req.JobID, records.steps[i])
	}
	return records
}

func (e *Executor) transitionRunning(ctx context.Context, jobID string, record *StepExecutionRecord) {
	record.Status = StatusRunning
	record.StartedAt = time.Now().UTC()
	e.save(ctx, jobID, *record)
}

func (e *Executor) transitionDone(ctx context.Context, jobID string, record *StepExecutionRecord, summary string) {
	now := time.Now().UTC()
	record.Status = StatusDone
	record.OutputSummary = summary
	record.CompletedAt = now
	if !record.StartedAt.IsZero() {
		record.DurationMS = now.Sub(record.StartedAt).Milliseconds()
	}
	e.save(ctx, jobID, *record)
}

func (e *Executor) transitionError(ctx context.Context, jobID string, record *StepExecutionRecord, msg string) {
	now := time.Now().UTC()
	record.Status = StatusError
	record.Error = msg
	record.CompletedAt = now
	if !record.StartedAt.IsZero() {
		record.DurationMS = now.Sub(record.StartedAt).Milliseconds()
	}
	e.save(ctx, jobID, *record)
}

func (e *Executor) save(ctx context.Context, jobID string, record StepExecutionRecord) {
	if e.sink == nil {
		return
	}
	if err := e.sink.SaveStep(ctx, jobID, record); err != nil {
		slog.Error("step persistence failed",
			slog.String("job_id", jobID),
			slog.Int("step", record.StepNumber),
			slog.String("error", err.Error()),
		)
	}
}

// fail terminates a run at the given step. Steps after the failing step
// stay pending; the failing step itself has already been transitioned by
// the caller (or stays pending for quota denials and cancellation).
func (e *Executor) fail(ctx context.Context, req RunRequest, records *runRecords, span oteltrace.Span, start time.Time, stepNumber int, msg string) ExecutionResult {
	errMsg := fmt.Sprintf("Step %d failed: %s", stepNumber, msg)

	RecordRunCompleted("failure", time.Since(start))
	span.SetStatus(codes.Error, errMsg)

	return ExecutionResult{
		Success: false,
		Error:   errMsg,
		Steps:   records.all(),
	}
}
