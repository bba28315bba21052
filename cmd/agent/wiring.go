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
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianAgent/services/agent/config"
	"github.com/AleutianAI/AleutianAgent/services/agent/executor"
	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
	"github.com/AleutianAI/AleutianAgent/services/agent/providers"
	"github.com/AleutianAI/AleutianAgent/services/agent/quota"
	"github.com/AleutianAI/AleutianAgent/services/agent/server"
	"github.com/AleutianAI/AleutianAgent/services/agent/store"
	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// pipeline is the fully wired agent: everything both serve and run need.
type pipeline struct {
	service *server.Service
	store   *store.Store
	db      *badger.DB
}

func (p *pipeline) close() {
	if err := p.db.Close(); err != nil {
		slog.Warn("closing database failed", slog.String("error", err.Error()))
	}
}

// buildPipeline wires the store, tool registry, planner, and executor
// from config. One Badger database backs both the job store and the
// tool result cache.
func buildPipeline(cfg config.Config) (*pipeline, error) {
	opts := badger.DefaultOptions(cfg.Store.Path).WithLogger(nil)
	if cfg.Store.Path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	st := store.NewWithDB(db)

	var provider planner.Provider
	if cfg.Provider.Name != "" {
		provider, err = providers.New(providers.Config{
			Name:    cfg.Provider.Name,
			APIKey:  cfg.APIKey(),
			Model:   cfg.Provider.Model,
			BaseURL: cfg.Provider.BaseURL,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("building provider: %w", err)
		}
	}

	registryOpts := []tools.RegistryOption{
		tools.WithRateLimiter(tools.NewRateLimiter(tools.DefaultToolLimits)),
		tools.WithCache(tools.NewResultCache(db)),
	}
	if provider != nil {
		registryOpts = append(registryOpts, tools.WithSummarizer(providers.NewSummarizer(provider)))
	}
	registry := tools.NewRegistry(registryOpts...)

	var llmPlanner *planner.LLMPlanner
	if cfg.Planner.Mode == "llm" {
		llmPlanner = planner.NewLLMPlanner(provider,
			time.Duration(cfg.Planner.LLMTimeoutSeconds)*time.Second)
	}
	selector := planner.NewSelector(planner.Mode(cfg.Planner.Mode), llmPlanner)

	tracker := quota.NewTracker(quota.Limits{
		MaxToolCalls:    cfg.Quota.MaxToolCalls,
		MaxBytesFetched: cfg.Quota.MaxBytesFetched,
	})

	exec := executor.NewExecutor(registry, tracker, st)
	svc := server.NewService(selector, exec, st, cfg.AllowedToolIDs(), cfg.Planner.MaxSteps)

	return &pipeline{service: svc, store: st, db: db}, nil
}
