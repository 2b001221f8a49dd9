// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("Timestamp should default to true")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{" warn ", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	for _, lvl := range []string{"debug", "INFO", "warn", "disabled"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false", lvl)
		}
	}
	for _, lvl := range []string{"", "verbose", "loud"} {
		if ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = true", lvl)
		}
	}
}

// TestInitAndContext mutates the global logger so it does not run in parallel.
func TestInitAndContext(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	cl := WithComponent("predict")
	cl.Info().Msg("component line")
	if !strings.Contains(buf.String(), `"component":"predict"`) {
		t.Errorf("missing component field: %s", buf.String())
	}

	buf.Reset()
	ctx := ContextWithRequestID(context.Background(), "req-42")
	Ctx(ctx).Info().Msg("request line")
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("missing request_id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"message":"request line"`) {
		t.Errorf("missing message: %s", buf.String())
	}
}

func TestCtxUsesStoredLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	Ctx(ctx).Warn().Msg("stored")

	if !strings.Contains(buf.String(), "stored") {
		t.Errorf("stored logger not used: %q", buf.String())
	}
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id without one in context: %q", buf.String())
	}
}

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	a, b := GenerateRequestID(), GenerateRequestID()
	if len(a) != 36 {
		t.Errorf("len = %d, want 36", len(a))
	}
	if a == b {
		t.Error("request IDs should be unique")
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context returned %q", got)
	}
}

func TestScoped(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf).With().Str("component", "predict").Logger()
	ctx := ContextWithRequestID(context.Background(), "abc")

	Scoped(ctx, base).Info().Msg("scoped")
	out := buf.String()
	if !strings.Contains(out, `"component":"predict"`) || !strings.Contains(out, `"request_id":"abc"`) {
		t.Errorf("Scoped() output = %s", out)
	}
}
