// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package predict

import (
	"fmt"
	"strings"
	"time"
)

// UnresolvedPolicy selects how movies missing from the item index are handled.
type UnresolvedPolicy string

const (
	// PolicyPassThrough scores unknown movies with the Sentinel position.
	PolicyPassThrough UnresolvedPolicy = "pass-through-sentinel"

	// PolicyFailRequest rejects the request with *UnresolvedItemError.
	PolicyFailRequest UnresolvedPolicy = "fail-request"

	// PolicyDrop omits unknown movies from the Scorer call and the response.
	PolicyDrop UnresolvedPolicy = "drop-item-silently"
)

// ParsePolicy accepts the canonical names and a few short aliases.
func ParsePolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyPassThrough), "pass-through", "sentinel":
		return PolicyPassThrough, nil
	case string(PolicyFailRequest), "fail":
		return PolicyFailRequest, nil
	case string(PolicyDrop), "drop":
		return PolicyDrop, nil
	default:
		return "", fmt.Errorf("unknown unresolved policy %q (want %s, %s or %s)",
			s, PolicyPassThrough, PolicyFailRequest, PolicyDrop)
	}
}

// Config controls request handling.
type Config struct {
	// UnresolvedPolicy applies to movies missing from the item index.
	UnresolvedPolicy UnresolvedPolicy

	// ScorerTimeout bounds a single Scorer call. Zero disables the bound.
	ScorerTimeout time.Duration

	// MaxConcurrent is the number of Scorer calls allowed in flight.
	// Zero disables admission control.
	MaxConcurrent int

	// AdmissionWait is how long a request may queue for a slot before it
	// fails with ErrOverloaded.
	AdmissionWait time.Duration
}

// DefaultConfig returns pass-through semantics with a 5s Scorer timeout and
// 64 concurrent Scorer calls.
func DefaultConfig() *Config {
	return &Config{
		UnresolvedPolicy: PolicyPassThrough,
		ScorerTimeout:    5 * time.Second,
		MaxConcurrent:    64,
		AdmissionWait:    time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := ParsePolicy(string(c.UnresolvedPolicy)); err != nil {
		return err
	}
	if c.ScorerTimeout < 0 {
		return fmt.Errorf("scorer_timeout must be non-negative, got %v", c.ScorerTimeout)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must be non-negative, got %d", c.MaxConcurrent)
	}
	if c.AdmissionWait < 0 {
		return fmt.Errorf("admission_wait must be non-negative, got %v", c.AdmissionWait)
	}
	return nil
}
