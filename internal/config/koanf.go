// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rcastell/curato/internal/digest"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/curato/config.yaml",
	"/etc/curato/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config
// file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces Curato's environment variables so unrelated
// variables never leak into the configuration.
const envPrefix = "CURATO_"

// defaultConfig returns a Config with all defaults populated. These are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Digest: *digest.DefaultConfig(),
		Store: StoreConfig{
			StateDir: "/data/curato/state",
			InMemory: false,
		},
		Feedback: FeedbackConfig{
			Path: "/data/curato/feedback.duckdb",
		},
		Ingest: IngestConfig{
			CandidatesPath: "/data/curato/candidates.json",
		},
		Advisor: AdvisorConfig{
			AutoApply: true,
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			Interval:         24 * time.Hour,
			RunOnStartup:     false,
			ExecutionTimeout: 5 * time.Minute,
		},
		Report: ReportConfig{
			OutputDir:    "/data/curato/reports",
			TemplatePath: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
	}
}

// Load builds the configuration using Koanf v2 with layered sources:
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: CURATO_* (highest priority)
//
// The merged result is validated before being returned.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer. Environment variables still apply on top.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "json"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// CURATO_LOG_LEVEL -> logging.level, CURATO_STATE_DIR -> store.state_dir
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, checking ConfigPathEnvVar
// first and then the default paths. Returns "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as
// comma-separated slices when supplied through the environment.
var sliceConfigPaths = []string{
	"digest.selection.headline_excluded_sources",
	"digest.insights.protected_sources",
	"digest.insights.dampened_sources",
}

// processSliceFields converts comma-separated string values into slices
// for known slice fields. Env vars arrive as plain strings while the
// config struct expects []string.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults).
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps CURATO_* environment variable names to koanf
// config paths. Unmapped variables are dropped so arbitrary environment
// entries cannot pollute the configuration.
//
// Examples:
//   - CURATO_LOG_LEVEL -> logging.level
//   - CURATO_STATE_DIR -> store.state_dir
//   - CURATO_SCHEDULER_INTERVAL -> scheduler.interval
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Store mappings
		"state_dir":       "store.state_dir",
		"store_in_memory": "store.in_memory",

		// Feedback mappings
		"feedback_path": "feedback.path",

		// Ingest mappings
		"candidates_path": "ingest.candidates_path",

		// Advisor mappings
		"advisor_auto_apply": "advisor.auto_apply",

		// Scheduler mappings
		"scheduler_enabled":        "scheduler.enabled",
		"scheduler_interval":       "scheduler.interval",
		"scheduler_run_on_startup": "scheduler.run_on_startup",
		"scheduler_exec_timeout":   "scheduler.execution_timeout",

		// Report mappings
		"report_output_dir": "report.output_dir",
		"report_template":   "report.template_path",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Metrics mappings
		"metrics_enabled":     "metrics.enabled",
		"metrics_listen_addr": "metrics.listen_addr",

		// Engine mappings: learning
		"weights_alpha":       "digest.weights.alpha",
		"weights_min_delta":   "digest.weights.min_delta",
		"weights_window_days": "digest.weights.window_days",

		// Engine mappings: reranking
		"rerank_use_embeddings": "digest.rerank.use_embeddings",

		// Engine mappings: selection
		"selection_max_per_source":            "digest.selection.max_per_source",
		"selection_exploration_rate":          "digest.selection.exploration_rate",
		"selection_headline_excluded_sources": "digest.selection.headline_excluded_sources",

		// Engine mappings: insights
		"insights_protected_sources": "digest.insights.protected_sources",
		"insights_dampened_sources":  "digest.insights.dampened_sources",

		// Engine mappings: exploration seed
		"digest_seed": "digest.seed",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
