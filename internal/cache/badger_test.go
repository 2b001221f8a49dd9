// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package cache

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestBadger(t *testing.T, path string) *Badger {
	t.Helper()
	b, err := OpenBadger(path, time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	return b
}

func TestBadger_GetSet(t *testing.T) {
	t.Parallel()

	b := openTestBadger(t, "")
	defer b.Close()

	keys := []Key{{1, 0, 0}, {1, 0, 1}, {1, -1, 2}}
	b.SetMany(keys[:2], []float64{0.9, -0.25})

	scores, found := b.GetMany(keys)
	if !found[0] || scores[0] != 0.9 {
		t.Errorf("key 0 = (%v, %v), want (0.9, true)", scores[0], found[0])
	}
	if !found[1] || scores[1] != -0.25 {
		t.Errorf("key 1 = (%v, %v), want (-0.25, true)", scores[1], found[1])
	}
	if found[2] {
		t.Error("unset key reported found")
	}
}

func TestBadger_ReopenDropsScores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	k := Key{Version: 1, User: 0, Item: 0}

	b := openTestBadger(t, dir)
	b.SetMany([]Key{k}, []float64{0.42})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A restarted process numbers its first snapshot 1 again.
	b = openTestBadger(t, dir)
	defer b.Close()
	if _, found := b.GetMany([]Key{k}); found[0] {
		t.Error("score from a previous run survived reopen")
	}

	b.SetMany([]Key{k}, []float64{0.1})
	scores, found := b.GetMany([]Key{k})
	if !found[0] || scores[0] != 0.1 {
		t.Errorf("after reopen = (%v, %v), want (0.1, true)", scores[0], found[0])
	}
}

func TestBadger_EmptyBatches(t *testing.T) {
	t.Parallel()

	b := openTestBadger(t, "")
	defer b.Close()

	b.SetMany(nil, nil)
	scores, found := b.GetMany(nil)
	if len(scores) != 0 || len(found) != 0 {
		t.Errorf("GetMany(nil) = (%v, %v)", scores, found)
	}
}

func TestKeyBytes_DistinctForNegativeIDs(t *testing.T) {
	t.Parallel()

	a := Key{1, -1, 0}.bytes()
	b := Key{1, 0, -1}.bytes()
	if string(a) == string(b) {
		t.Error("distinct keys encoded identically")
	}
	if len(a) != 25 || a[0] != 's' {
		t.Errorf("unexpected encoding %x", a)
	}
}
