// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package scorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ceema/internal/metrics"
	"github.com/tomtom215/ceema/internal/predict"
)

// ErrCircuitOpen is wrapped when the breaker rejects a call without trying it.
var ErrCircuitOpen = errors.New("scorer circuit open")

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval resets the failure counts while closed.
	Interval time.Duration

	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration

	// MinRequests is the sample size needed before the ratio is considered.
	MinRequests uint32

	// FailureRatio opens the circuit once reached.
	FailureRatio float64
}

// DefaultBreakerConfig opens after 60% failures over at least 10 calls and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Breaker wraps a Scorer with a circuit breaker so a failing model server
// is not hammered by every request.
type Breaker struct {
	inner predict.Scorer
	cb    *gobreaker.CircuitBreaker[[]float64]
	name  string
}

// NewBreaker wraps inner. name labels the breaker's metrics and logs.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreaker(name string, inner predict.Scorer, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	logger = logger.With().Str("component", "scorer-breaker").Str("breaker", name).Logger()

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Uint32("requests", counts.Requests).
					Float64("failure_ratio", ratio).
					Msg("opening scorer circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// A caller hanging up says nothing about the scorer's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{inner: inner, cb: cb, name: name}
}

// Name implements predict.Named by reporting the wrapped backend.
func (b *Breaker) Name() string {
	if n, ok := b.inner.(predict.Named); ok {
		return n.Name()
	}
	return b.name
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Score implements predict.Scorer.
func (b *Breaker) Score(ctx context.Context, users, items []int) ([]float64, error) {
	scores, err := b.cb.Execute(func() ([]float64, error) {
		return b.inner.Score(ctx, users, items)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return scores, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
}

// Health forwards to the wrapped scorer when it supports health checks.
func (b *Breaker) Health(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return healthOf(ctx, b.inner)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
