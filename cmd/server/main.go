// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package main is the entry point for the Ceema prediction server.
//
// Ceema loads the user and movie identifier indexes, builds the configured
// scorer chain and serves POST /predict behind a chi router.
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config.yaml, then environment (koanf v2)
//  2. Logging: zerolog, configured from the logging section
//  3. Indexes: user and movie mappings loaded into the first snapshot
//  4. Scorer: TF Serving or embedding backend, rate limit, circuit breaker
//  5. Prediction handler and optional score cache
//  6. Admin JWT manager, if JWT_SECRET is set
//  7. Supervisor tree: index watcher and HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops
// accepting connections and waits up to SHUTDOWN_TIMEOUT for
// in-flight requests.
//
// # Example Usage
//
//	export USER_INDEX_PATH=models/user_mapping.json
//	export MOVIE_INDEX_PATH=models/movie_mapping.json
//	export TFSERVING_ENDPOINT=http://tfserving:8501
//	./ceema
//
// Mint an admin token for POST /admin/reload:
//
//	JWT_SECRET=... ./ceema -admin-token ops@example.org
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/ceema/internal/api"
	"github.com/tomtom215/ceema/internal/auth"
	"github.com/tomtom215/ceema/internal/config"
	"github.com/tomtom215/ceema/internal/index"
	"github.com/tomtom215/ceema/internal/logging"
	"github.com/tomtom215/ceema/internal/metrics"
	"github.com/tomtom215/ceema/internal/predict"
	"github.com/tomtom215/ceema/internal/scorer"
	"github.com/tomtom215/ceema/internal/supervisor"
	"github.com/tomtom215/ceema/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	adminToken := flag.String("admin-token", "", "print an admin JWT for `subject` and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LoggingSettings())

	if *adminToken != "" {
		token, err := mintAdminToken(&cfg.Security, *adminToken)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to mint admin token")
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until a shutdown signal.
func run(cfg *config.Config) error {
	logger := logging.Logger()
	metrics.SetAppInfo(version)

	logging.Info().Str("version", version).Str("config", cfg.String()).Msg("Starting Ceema")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := index.NewRegistry(index.Source{
		UsersPath: cfg.Index.UsersPath,
		ItemsPath: cfg.Index.ItemsPath,
	}, logger)
	if _, err := registry.Reload(ctx, index.TriggerStartup); err != nil {
		return fmt.Errorf("load identifier indexes: %w", err)
	}

	sc, err := scorer.New(cfg.ScorerSettings(), logger)
	if err != nil {
		return fmt.Errorf("build scorer: %w", err)
	}

	predictCfg, err := cfg.PredictSettings()
	if err != nil {
		return err
	}
	predictor, err := predict.NewHandler(predictCfg, registry, sc, logger)
	if err != nil {
		return fmt.Errorf("build prediction handler: %w", err)
	}

	scoreCache, closeCache, err := openScoreCache(&cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			logging.Error().Err(err).Msg("Error closing score cache")
		}
	}()
	if scoreCache != nil {
		predictor.SetCache(scoreCache)
	}

	var jwtManager *auth.JWTManager
	if cfg.Security.AdminEnabled() {
		jwtManager, err = auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, auth.DefaultTokenTTL)
		if err != nil {
			return fmt.Errorf("build JWT manager: %w", err)
		}
		logging.Info().Msg("Admin routes enabled")
	} else {
		logging.Info().Msg("Admin routes disabled (JWT_SECRET not set)")
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*) while admin routes are enabled")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	handler := api.NewHandler(predictor, registry, func(ctx context.Context) error {
		return scorer.Health(ctx, sc)
	}, version)
	router := api.NewRouter(handler, api.RouterOptions{
		Middleware:   api.NewChiMiddleware(chiMiddlewareConfig(&cfg.Server)),
		JWT:          jwtManager,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if cfg.Index.Watch {
		tree.AddIndexService(index.NewWatcher(registry, cfg.Index.Debounce, logger))
		logging.Info().Dur("debounce", cfg.Index.Debounce).Msg("Index file watcher enabled")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))

	watchLogLevel()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// chiMiddlewareConfig maps the server section onto the chi middleware factory.
func chiMiddlewareConfig(s *config.ServerConfig) *api.ChiMiddlewareConfig {
	mc := api.DefaultChiMiddlewareConfig()
	mc.CORSAllowedOrigins = s.CORSOrigins
	mc.RateLimitRequests = s.RateLimitReqs
	mc.RateLimitWindow = s.RateLimitWindow
	mc.RateLimitDisabled = s.RateLimitDisabled
	return mc
}

// watchLogLevel re-applies the logging section when the config file
// changes. Other sections are read once at startup.
func watchLogLevel() {
	path := config.ConfigFile()
	if path == "" {
		return
	}

	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			l := logging.WithComponent("config")
			l.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logging.Init(cfg.LoggingSettings())
		l := logging.WithComponent("config")
		l.Info().Str("level", cfg.Logging.Level).
			Msg("Logging settings reloaded; restart to apply other changes")
	})
	if err != nil {
		l := logging.WithComponent("config")
		l.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}

// mintAdminToken signs an admin token with the configured secret.
func mintAdminToken(sec *config.SecurityConfig, subject string) (string, error) {
	if !sec.AdminEnabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	m, err := auth.NewJWTManager(sec.JWTSecret, sec.JWTIssuer, auth.DefaultTokenTTL)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(subject, auth.RoleAdmin)
}
