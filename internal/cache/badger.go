// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Badger is a ScoreCache backed by BadgerDB. Entries expire through Badger's
// per-entry TTL. An empty path opens an in-memory database.
type Badger struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// OpenBadger opens (or creates) the store at path. Snapshot versions restart
// at 1 with every process, so scores left on disk by a previous run are
// dropped on open: their positions may name different users, movies or
// models now.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenBadger(path string, ttl time.Duration, logger zerolog.Logger) (*Badger, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // badger's own logger is too chatty for request paths

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger score cache: %w", err)
	}
	if path != "" {
		if err := db.DropPrefix(scorePrefix); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("drop stale scores: %w", err)
		}
	}
	return &Badger{
		db:     db,
		ttl:    ttl,
		logger: logger.With().Str("component", "score-cache").Logger(),
	}, nil
}

// GetMany implements ScoreCache.
func (b *Badger) GetMany(keys []Key) ([]float64, []bool) {
	scores := make([]float64, len(keys))
	found := make([]bool, len(keys))

	err := b.db.View(func(txn *badger.Txn) error {
		for i, k := range keys {
			item, err := txn.Get(k.bytes())
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", k, err)
			}
			err = item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("value for %s has %d bytes", k, len(val))
				}
				scores[i] = math.Float64frombits(binary.BigEndian.Uint64(val))
				found[i] = true
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("score cache read failed, treating as miss")
		return make([]float64, len(keys)), make([]bool, len(keys))
	}
	return scores, found
}

// SetMany implements ScoreCache.
func (b *Badger) SetMany(keys []Key, scores []float64) {
	if len(keys) == 0 {
		return
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for i, k := range keys {
		if i >= len(scores) {
			break
		}
		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, math.Float64bits(scores[i]))
		if err := wb.SetEntry(badger.NewEntry(k.bytes(), val).WithTTL(b.ttl)); err != nil {
			b.logger.Warn().Err(err).Msg("score cache write failed")
			return
		}
	}
	if err := wb.Flush(); err != nil {
		b.logger.Warn().Err(err).Msg("score cache flush failed")
	}
}

// Close releases the database.
func (b *Badger) Close() error {
	return b.db.Close()
}
