// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ceema/config.yaml",
	"/etc/ceema/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			MaxBodyBytes:      1 << 20, // 1MB
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     600,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Index: IndexConfig{
			UsersPath: "models/user_mapping.json",
			ItemsPath: "models/movie_mapping.json",
			Watch:     false,
			Debounce:  500 * time.Millisecond,
		},
		Predict: PredictConfig{
			UnresolvedPolicy: "pass-through-sentinel",
			ScorerTimeout:    5 * time.Second,
			MaxConcurrent:    64,
			AdmissionWait:    time.Second,
		},
		Scorer: ScorerConfig{
			Backend: "tfserving",
			TFServing: TFServingConfig{
				Endpoint:  "http://127.0.0.1:8501",
				Model:     "movie_recommender",
				Signature: "serving_default",
				UserInput: "user",
				ItemInput: "movie",
				Timeout:   10 * time.Second,
			},
			EmbeddingPath: "",
			RateLimit:     0, // Unlimited
			RateBurst:     10,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Cache: CacheConfig{
			Enabled: false, // Opt-in; scores go stale only on a model change
			Backend: "lru",
			Path:    "",
			Size:    100000,
			TTL:     10 * time.Minute,
		},
		Security: SecurityConfig{
			JWTSecret: "",
			JWTIssuer: "ceema",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
//  1. Defaults: Built-in sensible defaults from defaultConfig()
//  2. Config File: Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: Override any setting (see envTransformFunc)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ConfigFile returns the config file Load would read, or "" when none exists.
func ConfigFile() string {
	return findConfigFile()
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"port":                "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"http_idle_timeout":   "server.idle_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"max_body_bytes":      "server.max_body_bytes",
	"cors_origins":        "server.cors_origins",
	"rate_limit_reqs":     "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",
	"rate_limit_disabled": "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Index files
	"user_index_path":  "index.users_path",
	"movie_index_path": "index.items_path",
	"index_watch":      "index.watch",
	"index_debounce":   "index.debounce",

	// Prediction
	"unresolved_policy":      "predict.unresolved_policy",
	"scorer_timeout":         "predict.scorer_timeout",
	"max_concurrent_scoring": "predict.max_concurrent",
	"admission_wait":         "predict.admission_wait",

	// Scorer backend
	"scorer_backend":       "scorer.backend",
	"tfserving_endpoint":   "scorer.tfserving.endpoint",
	"tfserving_model":      "scorer.tfserving.model",
	"tfserving_version":    "scorer.tfserving.version",
	"tfserving_signature":  "scorer.tfserving.signature",
	"tfserving_user_input": "scorer.tfserving.user_input",
	"tfserving_item_input": "scorer.tfserving.item_input",
	"tfserving_token":      "scorer.tfserving.token",
	"tfserving_timeout":    "scorer.tfserving.timeout",
	"embedding_model_path": "scorer.embedding_path",
	"scorer_rate_limit":    "scorer.rate_limit",
	"scorer_rate_burst":    "scorer.rate_burst",

	// Circuit breaker
	"scorer_breaker_enabled":       "scorer.breaker.enabled",
	"scorer_breaker_max_requests":  "scorer.breaker.max_requests",
	"scorer_breaker_interval":      "scorer.breaker.interval",
	"scorer_breaker_timeout":       "scorer.breaker.timeout",
	"scorer_breaker_min_requests":  "scorer.breaker.min_requests",
	"scorer_breaker_failure_ratio": "scorer.breaker.failure_ratio",

	// Score cache
	"score_cache_enabled": "cache.enabled",
	"score_cache_backend": "cache.backend",
	"score_cache_path":    "cache.path",
	"score_cache_size":    "cache.size",
	"score_cache_ttl":     "cache.ttl",

	// Security
	"jwt_secret": "security.jwt_secret",
	"jwt_issuer": "security.jwt_issuer",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - USER_INDEX_PATH -> index.users_path
//   - UNRESOLVED_POLICY -> predict.unresolved_policy
//   - TFSERVING_ENDPOINT -> scorer.tfserving.endpoint
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for reloading and swapping configuration safely.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
