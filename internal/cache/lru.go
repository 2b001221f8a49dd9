// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package cache

import (
	"sync"
	"time"
)

type lruEntry struct {
	key       Key
	score     float64
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// LRU is a thread-safe least-recently-used score cache with a TTL.
// A doubly-linked list keeps recency order and a map gives O(1) lookup.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[Key]*lruEntry

	// head.next is the most recently used entry, tail.prev the least.
	head *lruEntry
	tail *lruEntry

	now func() time.Time
}

// NewLRU creates an LRU holding at most capacity scores for ttl each.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 100000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	c := &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[Key]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// GetMany implements ScoreCache.
func (c *LRU) GetMany(keys []Key) ([]float64, []bool) {
	scores := make([]float64, len(keys))
	found := make([]bool, len(keys))

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for i, k := range keys {
		e, ok := c.items[k]
		if !ok {
			continue
		}
		if now.After(e.expiresAt) {
			c.unlink(e)
			continue
		}
		c.moveToFront(e)
		scores[i] = e.score
		found[i] = true
	}
	return scores, found
}

// SetMany implements ScoreCache. Extra keys without a score are ignored.
func (c *LRU) SetMany(keys []Key, scores []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	for i, k := range keys {
		if i >= len(scores) {
			break
		}
		if e, ok := c.items[k]; ok {
			e.score = scores[i]
			e.expiresAt = expiresAt
			c.moveToFront(e)
			continue
		}

		e := &lruEntry{key: k, score: scores[i], expiresAt: expiresAt}
		c.pushFront(e)
		c.items[k] = e
		for len(c.items) > c.capacity {
			c.unlink(c.tail.prev)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU) pushFront(e *lruEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU) moveToFront(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.pushFront(e)
}

func (c *LRU) unlink(e *lruEntry) {
	if e == c.head || e == c.tail {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
