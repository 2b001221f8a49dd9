// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ceema/internal/index"
	"github.com/tomtom215/ceema/internal/logging"
	"github.com/tomtom215/ceema/internal/predict"
	"github.com/tomtom215/ceema/internal/validation"
)

// readyCheckTimeout bounds the scorer health probe behind /ready.
const readyCheckTimeout = 2 * time.Second

// Predictor scores a request. *predict.Handler implements it.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) ([]predict.ScoreResult, error)
	Stats() predict.Stats
}

// Indexes exposes the active snapshot and reloads it. *index.Registry
// implements it.
type Indexes interface {
	Current() *index.Snapshot
	Reload(ctx context.Context, trigger string) (*index.Snapshot, error)
}

// HealthCheck reports whether a dependency can serve traffic.
type HealthCheck func(ctx context.Context) error

// Handler serves the HTTP endpoints.
type Handler struct {
	predictor   Predictor
	indexes     Indexes
	scorerCheck HealthCheck
	startTime   time.Time
	version     string
}

// NewHandler wires the endpoint handlers. scorerCheck may be nil.
func NewHandler(predictor Predictor, indexes Indexes, scorerCheck HealthCheck, version string) *Handler {
	return &Handler{
		predictor:   predictor,
		indexes:     indexes,
		scorerCheck: scorerCheck,
		startTime:   time.Now(),
		version:     version,
	}
}

// predictBody is the /predict request. Both fields are required; an empty
// movieIds array is allowed.
type predictBody struct {
	UserID   *FlexibleID  `json:"userId" validate:"required"`
	MovieIDs []FlexibleID `json:"movieIds" validate:"required"`
}

type predictResponse struct {
	Predictions []predict.ScoreResult `json:"predictions"`
	Status      string                `json:"status"`
}

// Predict handles POST /predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	var body predictBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeDecodeError(ctx, w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := validation.ValidateStruct(&body); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	results, err := h.predictor.Predict(ctx, predict.Request{
		UserID:  body.UserID.String(),
		ItemIDs: idStrings(body.MovieIDs),
	})
	if err != nil {
		writePredictError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, predictResponse{
		Predictions: results,
		Status:      statusSuccess,
	})
}

// Health handles GET /health. It only proves the process is serving.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readyResponse reports what /ready checked.
type readyResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version,omitempty"`
	IndexVersion  uint64    `json:"index_version,omitempty"`
	Users         int       `json:"users"`
	Movies        int       `json:"movies"`
	LoadedAt      time.Time `json:"loaded_at,omitempty"`
	Scorer        string    `json:"scorer"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Error         string    `json:"error,omitempty"`
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{
		Status:        "ready",
		Version:       h.version,
		Scorer:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	status := http.StatusOK

	snap := h.indexes.Current()
	if snap == nil {
		status = http.StatusServiceUnavailable
		resp.Status = statusError
		resp.Error = predict.ErrNoSnapshot.Error()
	} else {
		resp.IndexVersion = snap.Version
		resp.Users = snap.Users.Len()
		resp.Movies = snap.Items.Len()
		resp.LoadedAt = snap.LoadedAt
	}

	if h.scorerCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		if err := h.scorerCheck(ctx); err != nil {
			status = http.StatusServiceUnavailable
			resp.Status = statusError
			resp.Scorer = err.Error()
			if resp.Error == "" {
				resp.Error = msgNotReady
			}
		}
	}

	respondJSON(w, status, resp)
}

type reloadResponse struct {
	Status   string    `json:"status"`
	Version  uint64    `json:"version"`
	Users    int       `json:"users"`
	Movies   int       `json:"movies"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Reload handles POST /admin/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.indexes.Reload(r.Context(), index.TriggerAPI)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("index reload failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, reloadResponse{
		Status:   statusSuccess,
		Version:  snap.Version,
		Users:    snap.Users.Len(),
		Movies:   snap.Items.Len(),
		LoadedAt: snap.LoadedAt,
	})
}

type statsResponse struct {
	Status       string        `json:"status"`
	Predict      predict.Stats `json:"predict"`
	IndexVersion uint64        `json:"index_version"`
	Users        int           `json:"users"`
	Movies       int           `json:"movies"`
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Status:  statusSuccess,
		Predict: h.predictor.Stats(),
	}
	if snap := h.indexes.Current(); snap != nil {
		resp.IndexVersion = snap.Version
		resp.Users = snap.Users.Len()
		resp.Movies = snap.Items.Len()
	}
	respondJSON(w, http.StatusOK, resp)
}

// NotFound answers unknown routes with the error envelope.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, msgNotFound)
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, msgMethod)
}
