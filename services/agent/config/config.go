// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the agent service configuration
// from YAML. The loaded Config is immutable after Load; pass it by
// value.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianAgent/services/agent/tools"
)

// Config is the full agent service configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Planner  PlannerConfig  `yaml:"planner"`
	Provider ProviderConfig `yaml:"provider"`
	Quota    QuotaConfig    `yaml:"quota"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" validate:"required"`

	// MaxConcurrentJobs bounds simultaneously executing jobs; further
	// submissions queue.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" validate:"min=1,max=256"`
}

// PlannerConfig configures plan creation.
type PlannerConfig struct {
	// Mode is "rules" or "llm". LLM mode falls back to rules when the
	// provider fails or produces an invalid plan.
	Mode string `yaml:"mode" validate:"oneof=rules llm"`

	// MaxSteps caps plan length.
	MaxSteps int `yaml:"max_steps" validate:"min=1,max=20"`

	// AllowedTools is the tool allowlist plans are restricted to.
	AllowedTools []string `yaml:"allowed_tools" validate:"min=1"`

	// LLMTimeoutSeconds bounds one planning call to the provider.
	LLMTimeoutSeconds int `yaml:"llm_timeout_seconds" validate:"min=1,max=300"`
}

// ProviderConfig selects the LLM backend. Only consulted when planner
// mode is "llm".
type ProviderConfig struct {
	// Name is "anthropic", "openai", or "ollama".
	Name string `yaml:"name" validate:"omitempty,oneof=anthropic openai ollama"`

	// APIKeyEnv names the environment variable holding the API key. The
	// key itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// QuotaConfig sets per-tenant daily ceilings. Zero values use built-in
// defaults.
type QuotaConfig struct {
	MaxToolCalls    int `yaml:"max_tool_calls" validate:"min=0"`
	MaxBytesFetched int `yaml:"max_bytes_fetched" validate:"min=0"`
}

// StoreConfig locates the job store.
type StoreConfig struct {
	// Path is the Badger directory. Empty means in-memory, which loses
	// jobs on restart.
	Path string `yaml:"path"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is "json" or "text".
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	allowed := make([]string, 0, len(tools.DefaultAllowedTools))
	for _, t := range tools.DefaultAllowedTools {
		allowed = append(allowed, string(t))
	}
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			MaxConcurrentJobs: 8,
		},
		Planner: PlannerConfig{
			Mode:              "rules",
			MaxSteps:          5,
			AllowedTools:      allowed,
			LLMTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads, merges, and validates a YAML config file. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural constraints and tool names.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, name := range c.Planner.AllowedTools {
		if _, err := tools.ParseToolID(name); err != nil {
			return fmt.Errorf("invalid config: allowed_tools: %w", err)
		}
	}
	if c.Planner.Mode == "llm" && c.Provider.Name == "" {
		return fmt.Errorf("invalid config: planner mode llm requires a provider")
	}
	return nil
}

// AllowedToolIDs converts the configured allowlist to typed tool IDs.
// Call after Validate; unknown names are skipped.
func (c Config) AllowedToolIDs() []tools.ToolID {
	ids := make([]tools.ToolID, 0, len(c.Planner.AllowedTools))
	for _, name := range c.Planner.AllowedTools {
		if id, err := tools.ParseToolID(name); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (c Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}
