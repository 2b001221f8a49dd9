// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package config loads Ceema's configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("failed to load config")
//	}
//	handler, err := predict.NewHandler(cfg.PredictConfig(), registry, scorer, logger)
//
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/ceema/internal/logging"
	"github.com/tomtom215/ceema/internal/predict"
	"github.com/tomtom215/ceema/internal/scorer"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Index    IndexConfig    `koanf:"index"`
	Predict  PredictConfig  `koanf:"predict"`
	Scorer   ScorerConfig   `koanf:"scorer"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host" validate:"omitempty,ip|hostname"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// MaxBodyBytes caps request bodies. Zero disables the cap.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gte=0"`

	CORSOrigins []string `koanf:"cors_origins"`

	// Per-IP limit on /predict.
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IndexConfig locates the identifier mapping files.
type IndexConfig struct {
	UsersPath string `koanf:"users_path" validate:"required"`
	ItemsPath string `koanf:"items_path" validate:"required"`

	// Watch reloads the indexes when either file changes.
	Watch    bool          `koanf:"watch"`
	Debounce time.Duration `koanf:"debounce" validate:"gte=0"`
}

// PredictConfig tunes request handling in front of the scorer.
type PredictConfig struct {
	UnresolvedPolicy string        `koanf:"unresolved_policy" validate:"required"`
	ScorerTimeout    time.Duration `koanf:"scorer_timeout" validate:"gte=0"`
	MaxConcurrent    int           `koanf:"max_concurrent" validate:"gte=0"`
	AdmissionWait    time.Duration `koanf:"admission_wait" validate:"gte=0"`
}

// ScorerConfig selects the model backend.
type ScorerConfig struct {
	Backend       string          `koanf:"backend" validate:"oneof=tfserving embedding"`
	TFServing     TFServingConfig `koanf:"tfserving"`
	EmbeddingPath string          `koanf:"embedding_path" validate:"required_if=Backend embedding"`

	// RateLimit is calls per second to the backend. Zero disables it.
	RateLimit float64       `koanf:"rate_limit" validate:"gte=0"`
	RateBurst int           `koanf:"rate_burst" validate:"gte=0"`
	Breaker   BreakerConfig `koanf:"breaker"`
}

// TFServingConfig points at a TensorFlow Serving REST endpoint.
type TFServingConfig struct {
	Endpoint  string        `koanf:"endpoint" validate:"omitempty,url"`
	Model     string        `koanf:"model"`
	Version   string        `koanf:"version" validate:"omitempty,numeric"`
	Signature string        `koanf:"signature"`
	UserInput string        `koanf:"user_input"`
	ItemInput string        `koanf:"item_input"`
	Token     string        `koanf:"token"`
	Timeout   time.Duration `koanf:"timeout" validate:"gte=0"`
}

// BreakerConfig holds circuit breaker settings for the scorer.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests" validate:"gte=1"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// CacheConfig holds the optional score cache settings.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Backend string `koanf:"backend" validate:"oneof=lru badger"`

	// Path is the badger directory. Empty runs badger in memory.
	Path string        `koanf:"path"`
	Size int           `koanf:"size" validate:"gte=1"`
	TTL  time.Duration `koanf:"ttl" validate:"gte=0"`
}

// SecurityConfig protects the admin endpoints.
type SecurityConfig struct {
	// JWTSecret signs admin tokens. Empty disables /admin routes.
	JWTSecret string `koanf:"jwt_secret"`
	JWTIssuer string `koanf:"jwt_issuer"`
}

// AdminEnabled reports whether the admin routes are mounted.
func (s *SecurityConfig) AdminEnabled() bool {
	return s.JWTSecret != ""
}

// LoggingSettings converts the logging section for logging.Init.
func (c *Config) LoggingSettings() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}

// PredictSettings converts the predict section for predict.NewHandler.
func (c *Config) PredictSettings() (*predict.Config, error) {
	policy, err := predict.ParsePolicy(c.Predict.UnresolvedPolicy)
	if err != nil {
		return nil, err
	}
	return &predict.Config{
		UnresolvedPolicy: policy,
		ScorerTimeout:    c.Predict.ScorerTimeout,
		MaxConcurrent:    c.Predict.MaxConcurrent,
		AdmissionWait:    c.Predict.AdmissionWait,
	}, nil
}

// ScorerSettings converts the scorer section for scorer.New.
func (c *Config) ScorerSettings() scorer.Config {
	s := c.Scorer
	return scorer.Config{
		Backend: s.Backend,
		TFServing: scorer.TFServingConfig{
			Endpoint:  s.TFServing.Endpoint,
			Model:     s.TFServing.Model,
			Version:   s.TFServing.Version,
			Signature: s.TFServing.Signature,
			UserInput: s.TFServing.UserInput,
			ItemInput: s.TFServing.ItemInput,
			Token:     s.TFServing.Token,
			Timeout:   s.TFServing.Timeout,
		},
		EmbeddingPath:  s.EmbeddingPath,
		RateLimit:      s.RateLimit,
		RateBurst:      s.RateBurst,
		BreakerEnabled: s.Breaker.Enabled,
		Breaker: scorer.BreakerConfig{
			MaxRequests:  s.Breaker.MaxRequests,
			Interval:     s.Breaker.Interval,
			Timeout:      s.Breaker.Timeout,
			MinRequests:  s.Breaker.MinRequests,
			FailureRatio: s.Breaker.FailureRatio,
		},
	}
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, in that order of precedence (later wins).
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

func (c *Config) String() string {
	return fmt.Sprintf("server=%s index=%s,%s scorer=%s policy=%s cache=%t",
		c.Server.Addr(), c.Index.UsersPath, c.Index.ItemsPath,
		c.Scorer.Backend, c.Predict.UnresolvedPolicy, c.Cache.Enabled)
}
