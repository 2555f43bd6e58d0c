// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

/*
Package config provides centralized configuration management for Curato.

This package handles loading, merging, and validation of configuration for
every application component with sensible defaults for all settings.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

  - Built-in defaults
  - Optional YAML config file (CONFIG_PATH, config.yaml, /etc/curato/config.yaml)
  - CURATO_* environment variables

# Configuration Structure

The Config struct organizes settings into logical groups:

  - Digest: engine parameters (learning, reranking, selection, insights)
  - Store: BadgerDB state directory for weights and profile
  - Feedback: DuckDB feedback event database
  - Advisor: automatic application of weight recommendations
  - Scheduler: periodic run interval and execution timeout
  - Report: rendered markdown output location and template override
  - Logging: level, format, caller annotations
  - Metrics: Prometheus listener

# Environment Variables

A curated set of CURATO_* variables maps onto config paths, for example:

  - CURATO_LOG_LEVEL: logging.level (default: info)
  - CURATO_STATE_DIR: store.state_dir (default: /data/curato/state)
  - CURATO_FEEDBACK_PATH: feedback.path (default: /data/curato/feedback.duckdb)
  - CURATO_SCHEDULER_INTERVAL: scheduler.interval (default: 24h)
  - CURATO_SELECTION_EXPLORATION_RATE: digest.selection.exploration_rate

Unmapped environment variables are ignored rather than merged, so the
process environment cannot inject unexpected settings.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal().Err(err).Msg("failed to load config")
	}
	engineCfg := &cfg.Digest
*/
package config
