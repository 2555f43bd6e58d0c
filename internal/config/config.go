// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package config

import (
	"fmt"
	"time"

	"github.com/rcastell/curato/internal/digest"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML config file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: CURATO_* variables override any setting
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	// Digest holds the selection and learning engine parameters.
	Digest digest.Config `json:"digest"`

	// Store configures the on-disk state locations.
	Store StoreConfig `json:"store"`

	// Feedback configures the feedback event database.
	Feedback FeedbackConfig `json:"feedback"`

	// Ingest configures where candidate pools are read from.
	Ingest IngestConfig `json:"ingest"`

	// Advisor configures automatic application of weight recommendations.
	Advisor AdvisorConfig `json:"advisor"`

	// Scheduler configures the periodic digest run service.
	Scheduler SchedulerConfig `json:"scheduler"`

	// Report configures rendered digest output.
	Report ReportConfig `json:"report"`

	// Logging configures log level and output format.
	Logging LoggingConfig `json:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `json:"metrics"`
}

// StoreConfig configures the BadgerDB state directory used for learned
// weights and the user profile.
type StoreConfig struct {
	// StateDir is the BadgerDB directory for weights and profile state.
	StateDir string `json:"state_dir"`

	// InMemory runs the state store without disk persistence. Intended
	// for tests and one-off runs; learned weights do not survive restarts.
	InMemory bool `json:"in_memory"`
}

// FeedbackConfig configures the DuckDB feedback event store.
type FeedbackConfig struct {
	// Path is the DuckDB database file. Empty selects an in-memory
	// database, which loses history on shutdown.
	Path string `json:"path"`
}

// IngestConfig configures the candidate pool input. The upstream
// pipeline that scores and summarizes items drops its output as a JSON
// array of candidate items; each run reads the file fresh.
type IngestConfig struct {
	// CandidatesPath is the JSON candidate pool file. A missing file is
	// treated as an empty pool, not an error, so runs keep their
	// schedule when the upstream pipeline is late.
	CandidatesPath string `json:"candidates_path"`
}

// AdvisorConfig configures the recommendation advisor.
type AdvisorConfig struct {
	// AutoApply applies generated weight recommendations at the end of
	// each run instead of only reporting them.
	AutoApply bool `json:"auto_apply"`
}

// SchedulerConfig configures the periodic run service.
type SchedulerConfig struct {
	// Enabled turns the periodic scheduler on. When false the process
	// performs a single run and exits.
	Enabled bool `json:"enabled"`

	// Interval is the time between digest runs.
	Interval time.Duration `json:"interval"`

	// RunOnStartup performs a run immediately instead of waiting for
	// the first tick.
	RunOnStartup bool `json:"run_on_startup"`

	// ExecutionTimeout bounds a single digest run.
	ExecutionTimeout time.Duration `json:"execution_timeout"`
}

// ReportConfig configures rendered digest reports.
type ReportConfig struct {
	// OutputDir is where rendered markdown reports are written.
	OutputDir string `json:"output_dir"`

	// TemplatePath overrides the built-in markdown template.
	TemplatePath string `json:"template_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error, fatal.
	Level string `json:"level"`

	// Format is "json" or "console".
	Format string `json:"format"`

	// Caller adds file:line caller annotations to log entries.
	Caller bool `json:"caller"`
}

// MetricsConfig configures the Prometheus metrics listener.
type MetricsConfig struct {
	// Enabled starts an HTTP listener serving /metrics.
	Enabled bool `json:"enabled"`

	// ListenAddr is the metrics listener address, e.g. ":9090".
	ListenAddr string `json:"listen_addr"`
}

// validLogLevels are the levels accepted by the logging package.
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"fatal": true,
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if err := c.Digest.Validate(); err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	if c.Store.StateDir == "" && !c.Store.InMemory {
		return fmt.Errorf("store.state_dir is required unless store.in_memory is set")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	if c.Scheduler.ExecutionTimeout <= 0 {
		return fmt.Errorf("scheduler.execution_timeout must be positive, got %s", c.Scheduler.ExecutionTimeout)
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level %q is not a recognized level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	return nil
}
