// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ceema/internal/auth"
	"github.com/tomtom215/ceema/internal/cache"
	"github.com/tomtom215/ceema/internal/config"
)

func TestOpenScoreCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.CacheConfig
		wantNil bool
		wantErr bool
	}{
		{"disabled", config.CacheConfig{Enabled: false, Backend: "lru"}, true, false},
		{"lru", config.CacheConfig{Enabled: true, Backend: "lru", Size: 10, TTL: time.Minute}, false, false},
		{"badger in memory", config.CacheConfig{Enabled: true, Backend: "badger", TTL: time.Minute}, false, false},
		{"unknown", config.CacheConfig{Enabled: true, Backend: "redis"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, closeFn, err := openScoreCache(&tt.cfg, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("openScoreCache() error = %v, wantErr %v", err, tt.wantErr)
			}
			defer func() {
				if err := closeFn(); err != nil {
					t.Errorf("close error = %v", err)
				}
			}()
			if (c == nil) != tt.wantNil {
				t.Fatalf("cache = %v, wantNil %v", c, tt.wantNil)
			}
			if c == nil {
				return
			}

			keys := []cache.Key{{Version: 1, User: 0, Item: 3}}
			c.SetMany(keys, []float64{0.75})
			scores, found := c.GetMany(keys)
			if !found[0] || scores[0] != 0.75 {
				t.Errorf("GetMany() = %v, %v", scores, found)
			}
		})
	}
}

func TestMintAdminToken(t *testing.T) {
	t.Parallel()

	if _, err := mintAdminToken(&config.SecurityConfig{}, "ops"); err == nil {
		t.Error("mintAdminToken() without secret should fail")
	}

	sec := &config.SecurityConfig{
		JWTSecret: "mint_test_secret_that_is_longer_than_32_chars",
		JWTIssuer: "ceema",
	}
	token, err := mintAdminToken(sec, "ops")
	if err != nil {
		t.Fatalf("mintAdminToken() error = %v", err)
	}

	m, _ := auth.NewJWTManager(sec.JWTSecret, sec.JWTIssuer, time.Hour)
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Role != auth.RoleAdmin || claims.Subject != "ops" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestChiMiddlewareConfig(t *testing.T) {
	t.Parallel()

	mc := chiMiddlewareConfig(&config.ServerConfig{
		CORSOrigins:       []string{"https://a.example"},
		RateLimitReqs:     42,
		RateLimitWindow:   time.Second,
		RateLimitDisabled: true,
	})
	if len(mc.CORSAllowedOrigins) != 1 || mc.RateLimitRequests != 42 || mc.RateLimitWindow != time.Second || !mc.RateLimitDisabled {
		t.Errorf("config = %+v", mc)
	}
}
