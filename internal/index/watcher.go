// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package index

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events an editor or an atomic
// rename produces into a single reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Registry when its source files change. It implements
// suture.Service.
type Watcher struct {
	registry *Registry
	debounce time.Duration
	logger   zerolog.Logger

	// reloaded is signalled after each reload attempt. Tests only.
	reloaded chan error
}

// NewWatcher returns a watcher for registry's source files.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWatcher(registry *Registry, debounce time.Duration, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		registry: registry,
		debounce: debounce,
		logger:   logger.With().Str("component", "index-watcher").Logger(),
	}
}

// Serve watches until ctx is cancelled. The parent directories are watched
// rather than the files so that replace-by-rename deployments are seen.
func (w *Watcher) Serve(ctx context.Context) error {
	src := w.registry.Source()
	if src.UsersPath == "" || src.ItemsPath == "" {
		return ErrNoSource
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	targets := map[string]struct{}{
		filepath.Clean(src.UsersPath): {},
		filepath.Clean(src.ItemsPath): {},
	}
	dirs := map[string]struct{}{}
	for path := range targets {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.logger.Info().Str("users", src.UsersPath).Str("items", src.ItemsPath).Msg("watching index files")

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("fsnotify event channel closed")
			}
			if !shouldReload(event, targets, dirs) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("index file changed")
			if !pending {
				timer.Reset(w.debounce)
				pending = true
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify error channel closed")
			}
			w.logger.Warn().Err(err).Msg("watch error")
		case <-timer.C:
			pending = false
			_, err := w.registry.Reload(ctx, TriggerWatch)
			if w.reloaded != nil {
				w.reloaded <- err
			}
		}
	}
}

// String names the service in supervisor logs.
func (w *Watcher) String() string {
	return "index-watcher"
}

// configMapData is the symlink a Kubernetes ConfigMap volume swaps on update.
// The mounted files themselves never see an event.
const configMapData = "..data"

func shouldReload(event fsnotify.Event, targets, dirs map[string]struct{}) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	if _, ok := targets[name]; ok {
		return true
	}
	if filepath.Base(name) != configMapData {
		return false
	}
	_, ok := dirs[filepath.Dir(name)]
	return ok
}
