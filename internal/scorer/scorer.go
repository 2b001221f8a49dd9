// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package scorer provides predict.Scorer implementations and the wrappers
// that protect a remote model server: an outbound rate limit and a circuit
// breaker.
package scorer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ceema/internal/predict"
)

// Backend names accepted by New.
const (
	BackendTFServing = "tfserving"
	BackendEmbedding = "embedding"
)

// HealthChecker is implemented by scorers that can report readiness.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config selects and wraps a scorer backend.
type Config struct {
	Backend       string
	TFServing     TFServingConfig
	EmbeddingPath string

	// RateLimit is calls per second to the backend. Zero disables it.
	RateLimit float64
	RateBurst int

	BreakerEnabled bool
	Breaker        BreakerConfig
}

// New builds the configured backend wrapped as backend -> rate limit -> breaker.
// The breaker is outermost so calls it rejects never consume rate tokens.
//
//nolint:gocritic // hugeParam: cfg is read once at startup
func New(cfg Config, logger zerolog.Logger) (predict.Scorer, error) {
	var s predict.Scorer
	switch cfg.Backend {
	case BackendTFServing:
		tf, err := NewTFServing(cfg.TFServing)
		if err != nil {
			return nil, err
		}
		s = tf
	case BackendEmbedding:
		emb, err := LoadEmbedding(cfg.EmbeddingPath)
		if err != nil {
			return nil, err
		}
		s = emb
	default:
		return nil, fmt.Errorf("unknown scorer backend %q", cfg.Backend)
	}

	if cfg.RateLimit > 0 {
		s = NewRateLimited(s, cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.BreakerEnabled {
		s = NewBreaker("scorer-"+cfg.Backend, s, cfg.Breaker, logger)
	}

	logger.Info().
		Str("backend", cfg.Backend).
		Float64("rate_limit", cfg.RateLimit).
		Bool("breaker", cfg.BreakerEnabled).
		Msg("scorer ready")
	return s, nil
}

// Health reports s's health, or nil when s cannot tell.
func Health(ctx context.Context, s predict.Scorer) error {
	return healthOf(ctx, s)
}

func healthOf(ctx context.Context, s predict.Scorer) error {
	if hc, ok := s.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
