// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRegistry_ReloadPublishesSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	users := writeFile(t, dir, "users.json", `{"u1": 0}`)
	items := writeFile(t, dir, "items.json", `{"m1": 0, "m2": 1}`)

	reg := NewRegistry(Source{UsersPath: users, ItemsPath: items}, zerolog.Nop())
	if reg.Current() != nil {
		t.Fatal("Current() before load should be nil")
	}

	snap, err := reg.Reload(context.Background(), TriggerStartup)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if reg.Current() != snap {
		t.Error("Current() is not the published snapshot")
	}
	if snap.Users.Len() != 1 || snap.Items.Len() != 2 {
		t.Errorf("sizes = (%d, %d), want (1, 2)", snap.Users.Len(), snap.Items.Len())
	}
	if snap.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
}

func TestRegistry_FailedReloadKeepsPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	users := writeFile(t, dir, "users.json", `{"u1": 0}`)
	items := writeFile(t, dir, "items.json", `{"m1": 0}`)

	reg := NewRegistry(Source{UsersPath: users, ItemsPath: items}, zerolog.Nop())
	first, err := reg.Reload(context.Background(), TriggerStartup)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	writeFile(t, dir, "items.json", `{"m1": -4}`)
	if _, err := reg.Reload(context.Background(), TriggerAPI); !errors.Is(err, ErrNegativeIndex) {
		t.Fatalf("Reload() error = %v, want ErrNegativeIndex", err)
	}
	if reg.Current() != first {
		t.Error("failed reload replaced the active snapshot")
	}
}

func TestRegistry_VersionsIncrease(t *testing.T) {
	t.Parallel()

	reg := NewStaticRegistry(MustNew("users", nil), MustNew("items", nil))
	v1 := reg.Current().Version

	reg.Publish(MustNew("users", map[string]int{"u1": 0}), MustNew("items", nil))
	v2 := reg.Current().Version
	if v2 <= v1 {
		t.Errorf("version did not increase: %d -> %d", v1, v2)
	}

	if _, err := reg.Reload(context.Background(), TriggerAPI); !errors.Is(err, ErrNoSource) {
		t.Errorf("static Reload() error = %v, want ErrNoSource", err)
	}
}

func TestRegistry_CancelledReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := NewRegistry(Source{
		UsersPath: writeFile(t, dir, "users.json", `{"u1": 0}`),
		ItemsPath: writeFile(t, dir, "items.json", `{"m1": 0}`),
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := reg.Reload(ctx, TriggerAPI); !errors.Is(err, context.Canceled) {
		t.Errorf("Reload() error = %v, want context.Canceled", err)
	}
	if reg.Current() != nil {
		t.Error("cancelled reload published a snapshot")
	}
}

// TestRegistry_ConcurrentReadersSeeWholeSnapshots reloads repeatedly while
// readers check that the user and item indexes they observe come from the
// same generation of files.
func TestRegistry_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	usersPath := filepath.Join(dir, "users.json")
	itemsPath := filepath.Join(dir, "items.json")
	writeGen := func(gen int) {
		writeFile(t, dir, "users.json", fmt.Sprintf(`{"gen%d": 0}`, gen))
		writeFile(t, dir, "items.json", fmt.Sprintf(`["gen%d"]`, gen))
	}

	writeGen(0)
	reg := NewRegistry(Source{UsersPath: usersPath, ItemsPath: itemsPath}, zerolog.Nop())
	if _, err := reg.Reload(context.Background(), TriggerStartup); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := reg.Current()
				u, _ := snap.Users.Key(0)
				i, _ := snap.Items.Key(0)
				if u != i || !strings.HasPrefix(u, "gen") {
					errCh <- fmt.Errorf("mixed snapshot v%d: users=%q items=%q", snap.Version, u, i)
					return
				}
			}
		}()
	}

	for gen := 1; gen <= 50; gen++ {
		writeGen(gen)
		if _, err := reg.Reload(context.Background(), TriggerAPI); err != nil {
			t.Fatalf("Reload(gen %d) error = %v", gen, err)
		}
	}
	cancel()
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
}
