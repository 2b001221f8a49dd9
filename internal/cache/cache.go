// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package cache stores previously computed (user, movie) scores.
//
// Keys carry the index snapshot version, so publishing a new snapshot makes
// every older entry unreachable without an explicit flush. Two backends are
// provided: an in-process LRU and a Badger store that can persist across
// restarts.
package cache

import (
	"encoding/binary"
	"fmt"
)

// Key identifies one cached score.
type Key struct {
	Version uint64
	User    int
	Item    int
}

func (k Key) String() string {
	return fmt.Sprintf("v%d/u%d/i%d", k.Version, k.User, k.Item)
}

// scorePrefix leads every encoded Key.
var scorePrefix = []byte{'s'}

// bytes encodes k as a fixed-width big-endian key prefixed with "s".
// Version comes first so a snapshot's entries sort together.
func (k Key) bytes() []byte {
	b := make([]byte, 1+8+8+8)
	b[0] = scorePrefix[0]
	binary.BigEndian.PutUint64(b[1:], k.Version)
	binary.BigEndian.PutUint64(b[9:], uint64(int64(k.User)))  //nolint:gosec // sign preserved by round trip
	binary.BigEndian.PutUint64(b[17:], uint64(int64(k.Item))) //nolint:gosec // sign preserved by round trip
	return b
}

// ScoreCache is a batched score store. GetMany returns slices aligned with
// keys; scores[i] is meaningful only when found[i] is true. Implementations
// treat storage failures as misses.
type ScoreCache interface {
	GetMany(keys []Key) (scores []float64, found []bool)
	SetMany(keys []Key, scores []float64)
}
