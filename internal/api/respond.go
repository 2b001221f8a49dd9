// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ceema/internal/logging"
	"github.com/tomtom215/ceema/internal/predict"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Client-facing messages for the 4xx/503 cases.
const (
	msgUnknownUser   = "Unknown user"
	msgOverloaded    = "Service overloaded"
	msgBodyTooLarge  = "Request body too large"
	msgNotFound      = "Not found"
	msgMethod        = "Method not allowed"
	msgTooManyReqs   = "Too many requests"
	msgNotReady      = "Service not ready"
	retryAfterSecond = "1"
)

// errorResponse is the envelope for every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends the error envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message, Status: statusError})
}

// writePredictError maps a prediction failure to its status code. Internal
// errors carry their own message, as existing clients expect.
func writePredictError(ctx context.Context, w http.ResponseWriter, err error) {
	switch predict.KindOf(err) {
	case predict.KindUnknownUser:
		respondError(w, http.StatusBadRequest, msgUnknownUser)
	case predict.KindUnresolvedItem:
		respondError(w, http.StatusBadRequest, err.Error())
	case predict.KindOverloaded:
		w.Header().Set("Retry-After", retryAfterSecond)
		respondError(w, http.StatusServiceUnavailable, msgOverloaded)
	default:
		logging.Ctx(ctx).Error().
			Str("error", sanitizeLogValue(err.Error())).
			Msg("prediction failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeDecodeError answers a body that could not be read or parsed. An
// oversized body is 413; anything else falls into the 500 catch-all.
func writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respondError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}
	logging.Ctx(ctx).Warn().
		Str("error", sanitizeLogValue(err.Error())).
		Msg("invalid predict request")
	respondError(w, http.StatusInternalServerError, err.Error())
}
