// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package predict

import (
	"context"
)

// Sentinel is the item position sent to the Scorer for a movie the item
// index does not contain.
const Sentinel = -1

// Request is one prediction request.
type Request struct {
	// UserID is the external user identifier.
	UserID string

	// ItemIDs are external movie identifiers. Response order follows this order.
	ItemIDs []string
}

// ScoreResult is one movie's predicted affinity.
type ScoreResult struct {
	ItemID string  `json:"movieId"`
	Score  float64 `json:"score"`
}

// Scorer computes one score per (user, item) pair. users and items always
// have the same length; the returned slice must match it and keep order.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, users, items []int) ([]float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, users, items []int) ([]float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, users, items []int) ([]float64, error) {
	return f(ctx, users, items)
}

// Named is implemented by Scorers that report a backend name for metrics.
type Named interface {
	Name() string
}

func scorerName(s Scorer) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "custom"
}
