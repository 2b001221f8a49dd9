// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package scorer

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tomtom215/ceema/internal/predict"
)

// RateLimited paces calls to a Scorer with a token bucket. Callers wait for
// a token until their context ends.
type RateLimited struct {
	inner   predict.Scorer
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls per second with the given burst.
func NewRateLimited(inner predict.Scorer, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Score implements predict.Scorer.
func (r *RateLimited) Score(ctx context.Context, users, items []int) ([]float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("scorer rate limit: %w", err)
	}
	return r.inner.Score(ctx, users, items)
}

// Name implements predict.Named.
func (r *RateLimited) Name() string {
	if n, ok := r.inner.(predict.Named); ok {
		return n.Name()
	}
	return "custom"
}

// Health forwards to the wrapped scorer.
func (r *RateLimited) Health(ctx context.Context) error {
	return healthOf(ctx, r.inner)
}
