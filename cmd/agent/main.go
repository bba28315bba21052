// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command agent runs the Aleutian planning and execution agent.
//
// The agent turns a natural-language task into a validated tool plan,
// executes the plan step by step with fail-fast semantics, and
// synthesizes a final answer with citations.
//
// Usage:
//
//	# One-shot: plan and execute a prompt, print the result
//	go run ./cmd/agent run "search for Go generics tutorials and summarize"
//
//	# Serve the HTTP API
//	go run ./cmd/agent serve --config agent.yaml
//
// Example requests against the server:
//
//	curl -X POST http://localhost:8080/v1/agent/jobs \
//	  -H "Content-Type: application/json" \
//	  -d '{"prompt": "fetch https://go.dev and summarize"}'
//
//	curl http://localhost:8080/v1/agent/jobs/<job_id>
//	curl http://localhost:8080/v1/agent/jobs/<job_id>/steps
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/AleutianAgent/services/agent/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent",
		Short: "Aleutian planning and execution agent",
		Long: "Turns a natural-language task into a validated tool plan, executes it\n" +
			"with fail-fast semantics, and synthesizes an answer with citations.",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging configures the process-wide slog default.
func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// setupTracing installs the W3C propagator and, when AGENT_TRACE_STDOUT
// is set, a stdout span exporter. Returns a shutdown function.
func setupTracing() func() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if os.Getenv("AGENT_TRACE_STDOUT") == "" {
		return func() {}
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		slog.Warn("stdout trace exporter unavailable", slog.String("error", err.Error()))
		return func() {}
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("trace provider shutdown failed", slog.String("error", err.Error()))
		}
	}
}
