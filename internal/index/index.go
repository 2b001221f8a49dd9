// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package index holds the identifier indexes that translate external user
// and movie identifiers into the dense positions the model was trained on.
//
// An Index never changes after construction. Replacing the mappings at
// runtime goes through Registry, which publishes a whole new Snapshot with a
// single atomic pointer store; readers holding the old snapshot keep a
// consistent view until they finish.
package index

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned when a mapping contains an empty identifier.
	ErrEmptyKey = errors.New("empty identifier")

	// ErrNegativeIndex is returned for positions below zero.
	ErrNegativeIndex = errors.New("negative index")

	// ErrIndexOutOfRange is returned when a position is not in [0, N).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDuplicateIndex is returned when two identifiers share a position.
	ErrDuplicateIndex = errors.New("duplicate index")
)

// Index is an immutable bidirectional mapping between identifiers and
// positions in [0, N). It is safe for concurrent use.
type Index struct {
	name  string
	byKey map[string]int
	keys  []string
}

// New builds an Index from m. The map is copied; later changes to m are not
// observed. Positions must be unique and cover exactly [0, len(m)).
func New(name string, m map[string]int) (*Index, error) {
	idx := &Index{
		name:  name,
		byKey: make(map[string]int, len(m)),
		keys:  make([]string, len(m)),
	}

	n := len(m)
	for key, pos := range m {
		switch {
		case key == "":
			return nil, fmt.Errorf("%s index: %w", name, ErrEmptyKey)
		case pos < 0:
			return nil, fmt.Errorf("%s index: %q -> %d: %w", name, key, pos, ErrNegativeIndex)
		case pos >= n:
			return nil, fmt.Errorf("%s index: %q -> %d not in [0,%d): %w", name, key, pos, n, ErrIndexOutOfRange)
		case idx.keys[pos] != "":
			return nil, fmt.Errorf("%s index: %q and %q -> %d: %w", name, idx.keys[pos], key, pos, ErrDuplicateIndex)
		}
		idx.byKey[key] = pos
		idx.keys[pos] = key
	}

	return idx, nil
}

// FromKeys builds an Index where each identifier's position is its offset in keys.
func FromKeys(name string, keys []string) (*Index, error) {
	m := make(map[string]int, len(keys))
	for i, key := range keys {
		if prev, ok := m[key]; ok {
			return nil, fmt.Errorf("%s index: %q listed at %d and %d: %w", name, key, prev, i, ErrDuplicateIndex)
		}
		m[key] = i
	}
	return New(name, m)
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(name string, m map[string]int) *Index {
	idx, err := New(name, m)
	if err != nil {
		panic(err)
	}
	return idx
}

// Lookup returns the position of key.
func (i *Index) Lookup(key string) (int, bool) {
	if i == nil {
		return 0, false
	}
	pos, ok := i.byKey[key]
	return pos, ok
}

// Key returns the identifier stored at pos.
func (i *Index) Key(pos int) (string, bool) {
	if i == nil || pos < 0 || pos >= len(i.keys) {
		return "", false
	}
	return i.keys[pos], true
}

// Len returns the number of identifiers.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.keys)
}

// Name is the label given at construction ("users", "items").
func (i *Index) Name() string {
	if i == nil {
		return ""
	}
	return i.name
}
