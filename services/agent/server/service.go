// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the agent over HTTP: job submission, status and
// step inspection, health, and metrics.
package server

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianAgent/services/agent/executor"
	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
	"github.com/AleutianAI/AleutianAgent/services/agent/store"
	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// Service binds planning and execution into the job pipeline the HTTP
// layer and the one-shot CLI both drive.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	selector *planner.Selector
	executor *executor.Executor
	store    *store.Store

	allowedTools []tools.ToolID
	maxSteps     int
}

// NewService wires the pipeline.
func NewService(selector *planner.Selector, exec *executor.Executor, st *store.Store, allowed []tools.ToolID, maxSteps int) *Service {
	return &Service{
		selector:     selector,
		executor:     exec,
		store:        st,
		allowedTools: allowed,
		maxSteps:     maxSteps,
	}
}

// RunJob plans and executes one job, updating the stored job record
// through its lifecycle. The job must already exist in the store.
func (s *Service) RunJob(ctx context.Context, jobID, tenantID, prompt string) {
	ctx, span := otel.Tracer("aleutian.agent").Start(ctx, "server.Service.RunJob",
		oteltrace.WithAttributes(attribute.String("job_id", jobID)),
	)
	defer span.End()

	log := slog.With(slog.String("job_id", jobID))

	if err := s.store.UpdateJob(ctx, jobID, func(j *store.Job) {
		j.Status = store.JobRunning
	}); err != nil {
		log.Error("marking job running failed", slog.String("error", err.Error()))
	}

	plan, metadata := s.selector.CreatePlan(ctx, prompt, s.allowedTools, s.maxSteps)

	result := s.executor.Run(ctx, executor.RunRequest{
		JobID:    jobID,
		TenantID: tenantID,
		Prompt:   prompt,
		Plan:     plan,
		Metadata: &metadata,
	})

	if err := s.store.UpdateJob(ctx, jobID, func(j *store.Job) {
		if result.Success {
			j.Status = store.JobDone
			j.FinalOutput = result.FinalOutput
		} else {
			j.Status = store.JobError
			j.Error = result.Error
		}
	}); err != nil {
		log.Error("finalizing job failed", slog.String("error", err.Error()))
	}

	if result.Success {
		span.SetStatus(codes.Ok, "")
		log.Info("job completed", slog.String("planner_mode", string(plan.Mode)))
	} else {
		span.SetStatus(codes.Error, result.Error)
		log.Warn("job failed", slog.String("error", result.Error))
	}
}
