// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ceema/internal/logging"
)

// AccessLog logs one line per request, tagged with the request ID.
// Requests slower than slow are logged at warn; zero disables that.
// Health and metrics probes only log at debug.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			event := levelFor(*logging.Ctx(r.Context()), r, rec.status, duration, slow)
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int("bytes", rec.bytes).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("request completed")
		})
	}
}

func levelFor(logger zerolog.Logger, r *http.Request, status int, d, slow time.Duration) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return logger.Error()
	case slow > 0 && d > slow:
		return logger.Warn().Bool("slow", true)
	case isProbe(r.URL.Path):
		return logger.Debug()
	default:
		return logger.Info()
	}
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/ready", "/metrics":
		return true
	}
	return false
}
