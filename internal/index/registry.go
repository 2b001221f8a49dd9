// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ceema/internal/metrics"
)

// Reload triggers, used as log fields and metric labels.
const (
	TriggerStartup = "startup"
	TriggerWatch   = "watch"
	TriggerAPI     = "api"
)

// ErrNoSource is returned by Reload on a registry built without file paths.
var ErrNoSource = errors.New("index registry has no source files")

// Snapshot pairs the user and item indexes that were loaded together.
// A Snapshot is never modified after it is published.
type Snapshot struct {
	Users    *Index
	Items    *Index
	Version  uint64
	LoadedAt time.Time
}

// Source names the files a Registry reloads from.
type Source struct {
	UsersPath string
	ItemsPath string
}

// Registry publishes the active Snapshot. Current is lock-free; Reload and
// Publish serialize among themselves.
type Registry struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	reloadMu sync.Mutex
	source   Source
	logger   zerolog.Logger
}

// NewRegistry returns an empty registry reading from src. Call Reload before
// serving traffic.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRegistry(src Source, logger zerolog.Logger) *Registry {
	return &Registry{
		source: src,
		logger: logger.With().Str("component", "index").Logger(),
	}
}

// NewStaticRegistry publishes users and items immediately. It has no source
// files, so Reload fails with ErrNoSource.
func NewStaticRegistry(users, items *Index) *Registry {
	r := &Registry{logger: zerolog.Nop()}
	r.Publish(users, items)
	return r
}

// Current returns the active snapshot, or nil before the first load.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Source returns the configured file paths.
func (r *Registry) Source() Source {
	return r.source
}

// Publish activates a new snapshot built from users and items.
func (r *Registry) Publish(users, items *Index) *Snapshot {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	return r.publishLocked(users, items)
}

func (r *Registry) publishLocked(users, items *Index) *Snapshot {
	snap := &Snapshot{
		Users:    users,
		Items:    items,
		Version:  r.version.Add(1),
		LoadedAt: time.Now(),
	}
	r.current.Store(snap)
	metrics.RecordIndexSnapshot(snap.Version, users.Len(), items.Len())
	return snap
}

// Reload reads both files and publishes them as one snapshot. On any error
// the previous snapshot stays active.
func (r *Registry) Reload(ctx context.Context, trigger string) (*Snapshot, error) {
	snap, err := r.reload(ctx)
	metrics.RecordIndexReload(trigger, err)

	if err != nil {
		r.logger.Error().Err(err).Str("trigger", trigger).Msg("index reload failed")
		return nil, err
	}

	r.logger.Info().
		Str("trigger", trigger).
		Uint64("version", snap.Version).
		Int("users", snap.Users.Len()).
		Int("items", snap.Items.Len()).
		Msg("index snapshot published")
	return snap, nil
}

func (r *Registry) reload(ctx context.Context) (*Snapshot, error) {
	if r.source.UsersPath == "" || r.source.ItemsPath == "" {
		return nil, ErrNoSource
	}

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	users, err := LoadFile("users", r.source.UsersPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reload cancelled: %w", err)
	}
	items, err := LoadFile("items", r.source.ItemsPath)
	if err != nil {
		return nil, err
	}

	return r.publishLocked(users, items), nil
}
