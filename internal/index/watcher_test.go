// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

func TestShouldReload(t *testing.T) {
	t.Parallel()

	targets := map[string]struct{}{
		"/srv/ceema/users.json": {},
		"/srv/ceema/items.json": {},
	}
	dirs := map[string]struct{}{"/srv/ceema": {}}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to users", fsnotify.Event{Name: "/srv/ceema/users.json", Op: fsnotify.Write}, true},
		{"create items", fsnotify.Event{Name: "/srv/ceema/items.json", Op: fsnotify.Create}, true},
		{"unclean path", fsnotify.Event{Name: "/srv/ceema/./items.json", Op: fsnotify.Write}, true},
		{"chmod ignored", fsnotify.Event{Name: "/srv/ceema/users.json", Op: fsnotify.Chmod}, false},
		{"remove ignored", fsnotify.Event{Name: "/srv/ceema/users.json", Op: fsnotify.Remove}, false},
		{"other file", fsnotify.Event{Name: "/srv/ceema/model.h5", Op: fsnotify.Write}, false},
		{"configmap swap", fsnotify.Event{Name: "/srv/ceema/..data", Op: fsnotify.Create}, true},
		{"configmap tmp link", fsnotify.Event{Name: "/srv/ceema/..data_tmp", Op: fsnotify.Create}, false},
		{"configmap elsewhere", fsnotify.Event{Name: "/etc/other/..data", Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldReload(tt.event, targets, dirs); got != tt.want {
				t.Errorf("shouldReload() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcher_String(t *testing.T) {
	t.Parallel()

	w := NewWatcher(NewStaticRegistry(nil, nil), 0, zerolog.Nop())
	if w.String() != "index-watcher" {
		t.Errorf("String() = %q", w.String())
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestWatcher_NoSource(t *testing.T) {
	t.Parallel()

	w := NewWatcher(NewStaticRegistry(nil, nil), time.Millisecond, zerolog.Nop())
	if err := w.Serve(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("Serve() error = %v, want ErrNoSource", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	usersPath := writeFile(t, dir, "users.json", `{"u1": 0}`)
	itemsPath := writeFile(t, dir, "items.json", `{"m1": 0}`)

	reg := NewRegistry(Source{UsersPath: usersPath, ItemsPath: itemsPath}, zerolog.Nop())
	if _, err := reg.Reload(context.Background(), TriggerStartup); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	w := NewWatcher(reg, 20*time.Millisecond, zerolog.Nop())
	w.reloaded = make(chan error, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	}()

	// The watch is registered asynchronously, so keep rewriting until a
	// reload lands.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-w.reloaded:
			if err != nil {
				t.Fatalf("watch reload error = %v", err)
			}
			if _, ok := reg.Current().Items.Lookup("m2"); !ok {
				continue
			}
			return
		case <-tick.C:
			writeFile(t, dir, filepath.Base(itemsPath), `{"m1": 0, "m2": 1}`)
		case <-deadline:
			t.Fatal("watcher did not reload within 5s")
		}
	}
}
