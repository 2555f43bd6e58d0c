// Curato - Personalized Digest Selection and Learning Engine
// Copyright 2026 R. Castell (rcastell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcastell/curato

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("key", "value").Msg("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["message"] != "hello" || record["key"] != "value" {
		t.Errorf("record = %v", record)
	}
	if _, ok := record["time"]; !ok {
		t.Error("record missing timestamp")
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("filtered")
	Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Error("info record emitted at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn record missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := WithComponent("selector")
	logger.Info().Msg("tick")

	if !strings.Contains(buf.String(), `"component":"selector"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}

func TestCtx_RunIDPropagation(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRunID(context.Background(), "run-42")
	tagged := Ctx(ctx)
	tagged.Info().Msg("working")

	if !strings.Contains(buf.String(), `"run_id":"run-42"`) {
		t.Errorf("run_id missing: %s", buf.String())
	}

	// Without a run ID the logger still works, just untagged.
	buf.Reset()
	plain := Ctx(context.Background())
	plain.Info().Msg("plain")
	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("unexpected run_id: %s", buf.String())
	}
}

func TestContextWithNewRunID_Unique(t *testing.T) {
	a := RunIDFromContext(ContextWithNewRunID(context.Background()))
	b := RunIDFromContext(ContextWithNewRunID(context.Background()))
	if a == "" || a == b {
		t.Errorf("run IDs not unique: %q, %q", a, b)
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := slog.New(NewSlogHandler())
	slogger.Info("service started", "service", "scheduler", "attempts", int64(3))

	out := buf.String()
	for _, want := range []string{`"message":"service started"`, `"service":"scheduler"`, `"attempts":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("slog record missing %s: %s", want, out)
		}
	}
}

func TestSlogHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := slog.New(NewSlogHandler()).WithGroup("suture").With("supervisor", "root")
	slogger.Warn("restarting")

	if !strings.Contains(buf.String(), `"suture.supervisor":"root"`) {
		t.Errorf("grouped attr missing: %s", buf.String())
	}
}
