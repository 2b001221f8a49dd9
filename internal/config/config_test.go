// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/ceema/internal/predict"
)

// defaultsKoanf returns a koanf instance holding only the defaults.
func defaultsKoanf(t *testing.T) *koanf.Koanf {
	t.Helper()
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	return k
}

func TestServerConfig_Addr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"", 9000, ":9000"},
		{"::1", 8080, "[::1]:8080"},
	}
	for _, tt := range tests {
		s := ServerConfig{Host: tt.host, Port: tt.port}
		if got := s.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}

func TestPredictSettings(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Predict.UnresolvedPolicy = "fail"
	cfg.Predict.AdmissionWait = 3 * time.Second

	pc, err := cfg.PredictSettings()
	if err != nil {
		t.Fatalf("PredictSettings() error = %v", err)
	}
	if pc.UnresolvedPolicy != predict.PolicyFailRequest {
		t.Errorf("UnresolvedPolicy = %q, want %q", pc.UnresolvedPolicy, predict.PolicyFailRequest)
	}
	if pc.AdmissionWait != 3*time.Second || pc.MaxConcurrent != 64 {
		t.Errorf("PredictSettings() = %+v", pc)
	}

	cfg.Predict.UnresolvedPolicy = "nope"
	if _, err := cfg.PredictSettings(); err == nil {
		t.Error("PredictSettings() accepted an unknown policy")
	}
}

func TestScorerSettings(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Scorer.RateLimit = 50
	cfg.Scorer.TFServing.Version = "2"

	sc := cfg.ScorerSettings()
	if sc.Backend != "tfserving" || sc.TFServing.Endpoint != "http://127.0.0.1:8501" {
		t.Errorf("ScorerSettings() = %+v", sc)
	}
	if sc.TFServing.Version != "2" || sc.RateLimit != 50 {
		t.Errorf("ScorerSettings() dropped overrides: %+v", sc)
	}
	if !sc.BreakerEnabled || sc.Breaker.FailureRatio != 0.6 {
		t.Errorf("breaker = %v %+v", sc.BreakerEnabled, sc.Breaker)
	}
}

func TestLoggingSettings(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Logging.Format = "console"
	cfg.Logging.Caller = true

	lc := cfg.LoggingSettings()
	if lc.Level != "info" || lc.Format != "console" || !lc.Caller {
		t.Errorf("LoggingSettings() = %+v", lc)
	}
	if !lc.Timestamp {
		t.Error("LoggingSettings() should keep timestamps on")
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("no warning expected without admin routes")
	}

	cfg.Security.JWTSecret = strings.Repeat("k", 40)
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard CORS with admin routes should warn")
	}

	cfg.Server.CORSOrigins = []string{"https://ops.example.org"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestConfigString(t *testing.T) {
	t.Parallel()

	got := defaultConfig().String()
	for _, want := range []string{"0.0.0.0:8080", "tfserving", "pass-through-sentinel"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
