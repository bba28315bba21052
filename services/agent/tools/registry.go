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
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// toolFunc is the signature every registered tool implementation shares.
type toolFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// Registry dispatches tool invocations with rate limiting and caching.
//
// Description:
//
//	Implements Invoker. Each invocation checks the per-tool rate limiter,
//	consults the result cache for cacheable tools, runs the tool, and
//	stores the result. The registry carries the standard tool set; extra
//	tools (a build backend, for instance) can be added with Register
//	before first use.
//
// Thread Safety: Safe for concurrent use after construction. Register
// must not be called concurrently with Invoke.
type Registry struct {
	impls   map[ToolID]toolFunc
	limiter *RateLimiter
	cache   *ResultCache
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRateLimiter sets the per-tool rate limiter. Nil disables limiting.
func WithRateLimiter(rl *RateLimiter) RegistryOption {
	return func(r *Registry) { r.limiter = rl }
}

// WithCache sets the tool result cache. Nil disables caching.
func WithCache(c *ResultCache) RegistryOption {
	return func(r *Registry) { r.cache = c }
}

// WithSummarizer routes web_summarize through the given provider before
// falling back to the heuristic.
func WithSummarizer(s Summarizer) RegistryOption {
	return func(r *Registry) {
		r.impls[ToolWebSummarize] = func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return toolWebSummarize(ctx, input, s)
		}
	}
}

// NewRegistry builds a registry with the standard tool set.
//
// Inputs:
//   - opts: Optional configuration (rate limiter, cache, summarizer).
//
// Outputs:
//   - *Registry: Ready-to-use registry. build_tool is not wired; see
//     Register.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		impls: map[ToolID]toolFunc{
			ToolEcho:        toolEcho,
			ToolHTTPFetch:   toolHTTPFetch,
			ToolWebSearch:   toolWebSearch,
			ToolWebPageText: toolWebPageText,
			ToolWebSummarize: func(ctx context.Context, input map[string]any) (map[string]any, error) {
				return toolWebSummarize(ctx, input, nil)
			},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces a tool implementation. The identifier must be
// a member of the closed enumeration.
func (r *Registry) Register(tool ToolID, fn toolFunc) error {
	if _, err := ParseToolID(string(tool)); err != nil {
		return err
	}
	r.impls[tool] = fn
	return nil
}

// Invoke runs a tool by identifier with rate limiting and caching applied.
//
// Inputs:
//   - ctx: Context for cancellation and tracing.
//   - tool: The tool identifier. Must have a registered implementation.
//   - input: The resolved step input.
//
// Outputs:
//   - map[string]any: The tool's structured result.
//   - error: ErrUnknownTool, ErrRateLimited, ErrBlockedDestination,
//     ErrInvalidInput, or the tool's own failure.
func (r *Registry) Invoke(ctx context.Context, tool ToolID, input map[string]any) (map[string]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := otel.Tracer("aleutian.agent").Start(ctx, "tools.Registry.Invoke",
		oteltrace.WithAttributes(attribute.String("tool", string(tool))),
	)
	defer span.End()

	fn, ok := r.impls[tool]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownTool, tool)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if r.limiter != nil {
		if allowed, wait := r.limiter.Allow(tool); !allowed {
			RecordToolRateLimited(string(tool))
			err := fmt.Errorf("%w: %s, retry after %v", ErrRateLimited, tool, wait.Round(time.Millisecond))
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if r.cache != nil {
		if cached, hit := r.cache.Get(tool, input); hit {
			RecordToolCacheHit(string(tool))
			slog.Debug("tool cache hit", slog.String("tool", string(tool)))
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached, nil
		}
	}

	start := time.Now()
	result, err := fn(ctx, input)
	duration := time.Since(start)

	if err != nil {
		RecordToolInvocation(string(tool), "error", duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	RecordToolInvocation(string(tool), "ok", duration)

	if r.cache != nil {
		if cacheErr := r.cache.Set(tool, input, result); cacheErr != nil {
			slog.Warn("tool cache write failed",
				slog.String("tool", string(tool)),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}
