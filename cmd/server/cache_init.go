// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ceema/internal/cache"
	"github.com/tomtom215/ceema/internal/config"
	"github.com/tomtom215/ceema/internal/logging"
)

const (
	cacheBackendLRU    = "lru"
	cacheBackendBadger = "badger"
)

// openScoreCache builds the configured score cache. It returns a nil cache
// when caching is disabled. The close func is always safe to call.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openScoreCache(cfg *config.CacheConfig, logger zerolog.Logger) (cache.ScoreCache, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Enabled {
		return nil, noop, nil
	}

	switch cfg.Backend {
	case cacheBackendLRU:
		logging.Info().Int("size", cfg.Size).Dur("ttl", cfg.TTL).Msg("LRU score cache enabled")
		return cache.NewLRU(cfg.Size, cfg.TTL), noop, nil
	case cacheBackendBadger:
		b, err := cache.OpenBadger(cfg.Path, cfg.TTL, logger)
		if err != nil {
			return nil, noop, err
		}
		logging.Info().Str("path", cfg.Path).Dur("ttl", cfg.TTL).Msg("Badger score cache enabled")
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown score cache backend %q", cfg.Backend)
	}
}
