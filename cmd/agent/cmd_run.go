// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianAgent/services/agent/config"
	"github.com/AleutianAI/AleutianAgent/services/agent/quota"
	"github.com/AleutianAI/AleutianAgent/services/agent/store"
)

var showSteps bool

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Plan and execute a single prompt, then print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOnce(strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&showSteps, "steps", false, "Print the step audit trail")
	return cmd
}

func runOnce(prompt string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// One-shot runs keep everything in memory regardless of config.
	cfg.Store.Path = ""

	setupLogging(cfg.Logging)
	shutdownTracing := setupTracing()
	defer shutdownTracing()

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipe.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID := uuid.New().String()
	job := store.Job{ID: jobID, TenantID: quota.LegacyTenant, Prompt: prompt}
	if err := pipe.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	pipe.service.RunJob(ctx, jobID, quota.LegacyTenant, prompt)

	done, err := pipe.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job result: %w", err)
	}

	if showSteps {
		steps, err := pipe.store.ListSteps(ctx, jobID)
		if err != nil {
			return fmt.Errorf("loading steps: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Steps:")
		for _, s := range steps {
			line := fmt.Sprintf("  %2d  %-14s %-8s", s.StepNumber, s.Tool, s.Status)
			if s.Error != "" {
				line += "  " + s.Error
			}
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if done.Status == store.JobError {
		return fmt.Errorf("%s", done.Error)
	}
	fmt.Println(done.FinalOutput)
	return nil
}
