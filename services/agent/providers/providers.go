// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers implements planner.Provider over the Anthropic,
// OpenAI, and Ollama chat APIs using raw net/http. No vendor SDKs; the
// call shape here is a single system+user turn returning plain text.
package providers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianAgent/services/agent/planner"
)

// ErrUnknownProvider reports an unrecognized provider name in config.
var ErrUnknownProvider = errors.New("unknown provider")

// defaultHTTPTimeout bounds a single completion call. Planning prompts
// are short; anything slower than this is better served by the rules
// fallback.
const defaultHTTPTimeout = 60 * time.Second

// Config selects and parameterizes a provider.
type Config struct {
	// Name is "anthropic", "openai", or "ollama".
	Name string

	// APIKey authenticates hosted providers. Ignored by ollama.
	APIKey string

	// Model is the provider-specific model identifier. Empty picks the
	// provider's default.
	Model string

	// BaseURL overrides the provider endpoint, for tests and proxies.
	BaseURL string
}

// New builds a planner.Provider from config.
func New(cfg Config) (planner.Provider, error) {
	switch cfg.Name {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}
