// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ceema/internal/logging"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims RequireRole stored, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// RequireRole rejects requests without a valid bearer token carrying role.
// Failures answer 401 (no or bad token) or 403 (wrong role) in the API's
// error envelope.
func RequireRole(m *JWTManager, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ceema"`)
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := m.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("token validation failed")
				w.Header().Set("WWW-Authenticate", `Bearer realm="ceema", error="invalid_token"`)
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if claims.Role != role {
				logging.Ctx(r.Context()).Warn().
					Str("subject", claims.Subject).
					Str("role", claims.Role).
					Str("required_role", role).
					Msg("insufficient permissions")
				writeAuthError(w, http.StatusForbidden, "Forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  message,
		"status": "error",
	})
}
