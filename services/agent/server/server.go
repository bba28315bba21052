// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianAgent/services/agent/executor"
	"github.com/AleutianAI/AleutianAgent/services/agent/quota"
	"github.com/AleutianAI/AleutianAgent/services/agent/store"
)

// maxPromptLength bounds submitted prompts.
const maxPromptLength = 4000

// tenantHeader carries the caller's tenant. Absent means the legacy
// unauthenticated tenant.
const tenantHeader = "X-Tenant-ID"

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SubmitJobRequest is the body of POST /v1/agent/jobs.
type SubmitJobRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// SubmitJobResponse acknowledges an accepted job.
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// StepsResponse lists a job's step execution records.
type StepsResponse struct {
	JobID string                         `json:"job_id"`
	Steps []executor.StepExecutionRecord `json:"steps"`
}

// Handlers serves the agent HTTP API.
type Handlers struct {
	store     *store.Store
	scheduler *Scheduler
}

// NewHandlers builds the HTTP handlers.
func NewHandlers(st *store.Store, scheduler *Scheduler) *Handlers {
	return &Handlers{store: st, scheduler: scheduler}
}

// NewRouter builds the gin engine with tracing middleware, the job API,
// health, and Prometheus metrics.
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-agent"))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// RegisterRoutes registers all /v1/agent/* endpoints with the router
// group.
//
// Endpoints:
//
//	POST   /v1/agent/jobs - Submit a prompt for planning and execution
//	GET    /v1/agent/jobs/:id - Get job status and final output
//	GET    /v1/agent/jobs/:id/steps - Get the job's step audit trail
//	DELETE /v1/agent/jobs/:id - Cancel a queued or running job
//	GET    /v1/agent/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	agent := rg.Group("/agent")
	{
		agent.POST("/jobs", handlers.HandleSubmitJob)
		agent.GET("/jobs/:id", handlers.HandleGetJob)
		agent.GET("/jobs/:id/steps", handlers.HandleGetSteps)
		agent.DELETE("/jobs/:id", handlers.HandleCancelJob)

		agent.GET("/health", handlers.HandleHealth)
	}
}

// HandleSubmitJob accepts a prompt and queues it for execution.
func (h *Handlers) HandleSubmitJob(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "prompt is required",
			Code:  "MISSING_PROMPT",
		})
		return
	}
	if len(req.Prompt) > maxPromptLength {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "prompt exceeds maximum length",
			Code:  "PROMPT_TOO_LONG",
		})
		return
	}

	tenantID := c.GetHeader(tenantHeader)
	if tenantID == "" {
		tenantID = quota.LegacyTenant
	}

	job := store.Job{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Prompt:   req.Prompt,
	}
	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to persist job",
			Code:  "STORE_ERROR",
		})
		return
	}

	h.scheduler.Submit(job.ID, tenantID, req.Prompt)

	c.JSON(http.StatusAccepted, SubmitJobResponse{
		JobID:  job.ID,
		Status: string(store.JobQueued),
	})
}

// HandleGetJob returns the job record, including the final output once
// the job is done.
func (h *Handlers) HandleGetJob(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "job not found",
			Code:  "JOB_NOT_FOUND",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to load job",
			Code:  "STORE_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, job)
}

// HandleGetSteps returns the step audit trail ordered by step number.
// Step 0, when present, records the planning outcome.
func (h *Handlers) HandleGetSteps(c *gin.Context) {
	jobID := c.Param("id")

	if _, err := h.store.GetJob(c.Request.Context(), jobID); errors.Is(err, store.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "job not found",
			Code:  "JOB_NOT_FOUND",
		})
		return
	}

	steps, err := h.store.ListSteps(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to load steps",
			Code:  "STORE_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, StepsResponse{JobID: jobID, Steps: steps})
}

// HandleCancelJob cancels a queued or running job. Cancellation takes
// effect between steps.
func (h *Handlers) HandleCancelJob(c *gin.Context) {
	jobID := c.Param("id")
	if !h.scheduler.Cancel(jobID) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "job is not active",
			Code:  "JOB_NOT_ACTIVE",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
