// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/ceema/internal/index"
	"github.com/tomtom215/ceema/internal/predict"
)

// countingScorer scores m1 as 0.9, m2 as 0.3 and anything else as 0.1.
type countingScorer struct {
	calls atomic.Int32
	err   error
}

func (s *countingScorer) Score(_ context.Context, _, items []int) ([]float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(items))
	for i, it := range items {
		switch it {
		case 0:
			out[i] = 0.9
		case 1:
			out[i] = 0.3
		default:
			out[i] = 0.1
		}
	}
	return out, nil
}

func testIndexes() *index.Registry {
	return index.NewStaticRegistry(
		index.MustNew("users", map[string]int{"u1": 0, "42": 1}),
		index.MustNew("items", map[string]int{"m1": 0, "m2": 1, "101": 2}),
	)
}

func newTestAPI(t *testing.T, policy predict.UnresolvedPolicy, s predict.Scorer) *Handler {
	t.Helper()
	cfg := predict.DefaultConfig()
	cfg.UnresolvedPolicy = policy
	p, err := predict.NewHandler(cfg, testIndexes(), s, zerolog.Nop())
	if err != nil {
		t.Fatalf("predict.NewHandler() error = %v", err)
	}
	return NewHandler(p, testIndexes(), nil, "test")
}

func postPredict(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t, predict.PolicyPassThrough, &countingScorer{})
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"status":"healthy"}` {
		t.Errorf("body = %s", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestPredict_Success(t *testing.T) {
	t.Parallel()

	s := &countingScorer{}
	h := newTestAPI(t, predict.PolicyPassThrough, s)

	w := postPredict(t, h.Predict, `{"userId":"u1","movieIds":["m1","m2"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp predictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := predictResponse{
		Predictions: []predict.ScoreResult{{ItemID: "m1", Score: 0.9}, {ItemID: "m2", Score: 0.3}},
		Status:      "success",
	}
	if !reflect.DeepEqual(resp, want) {
		t.Errorf("response = %+v, want %+v", resp, want)
	}
	if got := s.calls.Load(); got != 1 {
		t.Errorf("scorer calls = %d, want 1", got)
	}
}

func TestPredict_NumericIDs(t *testing.T) {
	t.Parallel()

	h := newTestAPI(t, predict.PolicyPassThrough, &countingScorer{})

	w := postPredict(t, h.Predict, `{"userId":42,"movieIds":[101,"m1"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp predictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(resp.Predictions) != 2 || resp.Predictions[0].ItemID != "101" || resp.Predictions[1].ItemID != "m1" {
		t.Errorf("predictions = %+v", resp.Predictions)
	}
}

func TestPredict_UnknownUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"unknown", `{"userId":"unknown","movieIds":["m1"]}`},
		{"empty string", `{"userId":"","movieIds":["m1"]}`},
		{"empty list", `{"userId":"nobody","movieIds":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &countingScorer{}
			h := newTestAPI(t, predict.PolicyPassThrough, s)

			w := postPredict(t, h.Predict, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Unknown user","status":"error"}` {
				t.Errorf("body = %s", got)
			}
			if got := s.calls.Load(); got != 0 {
				t.Errorf("scorer calls = %d, want 0", got)
			}
		})
	}
}

func TestPredict_EmptyMovieIDs(t *testing.T) {
	t.Parallel()

	s := &countingScorer{}
	h := newTestAPI(t, predict.PolicyPassThrough, s)

	w := postPredict(t, h.Predict, `{"userId":"u1","movieIds":[]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"predictions":[],"status":"success"}` {
		t.Errorf("body = %s", got)
	}
	if got := s.calls.Load(); got != 0 {
		t.Errorf("scorer calls = %d, want 0", got)
	}
}

func TestPredict_UnresolvedPolicies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		policy     predict.UnresolvedPolicy
		wantStatus int
		wantIDs    []string
		wantError  string
	}{
		{"pass-through keeps item", predict.PolicyPassThrough, http.StatusOK, []string{"m1", "zzz"}, ""},
		{"drop removes item", predict.PolicyDrop, http.StatusOK, []string{"m1"}, ""},
		{"fail rejects request", predict.PolicyFailRequest, http.StatusBadRequest, nil, "Unknown movie: zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestAPI(t, tt.policy, &countingScorer{})
			w := postPredict(t, h.Predict, `{"userId":"u1","movieIds":["m1","zzz"]}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			body := decodeBody(t, w)
			if tt.wantError != "" {
				if body["error"] != tt.wantError || body["status"] != "error" {
					t.Errorf("body = %v", body)
				}
				return
			}

			var resp predictResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			var ids []string
			for _, p := range resp.Predictions {
				ids = append(ids, p.ItemID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestPredict_InternalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		scorerErr error
		wantMsg   string
	}{
		{"malformed json", `{"userId":`, nil, "invalid request body"},
		{"missing userId", `{"movieIds":["m1"]}`, nil, "userId is required"},
		{"missing movieIds", `{"userId":"u1"}`, nil, "movieIds is required"},
		{"bad id type", `{"userId":true,"movieIds":[]}`, nil, "must be a string or number"},
		{"scorer failure", `{"userId":"u1","movieIds":["m1"]}`, errors.New("model backend unreachable"), "model backend unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestAPI(t, predict.PolicyPassThrough, &countingScorer{err: tt.scorerErr})
			w := postPredict(t, h.Predict, tt.body)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500: %s", w.Code, w.Body.String())
			}

			body := decodeBody(t, w)
			msg, _ := body["error"].(string)
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantMsg)
			}
			if body["status"] != "error" {
				t.Errorf("status = %v, want error", body["status"])
			}
		})
	}
}

// fakePredictor returns a fixed error.
type fakePredictor struct {
	err error
}

func (f fakePredictor) Predict(context.Context, predict.Request) ([]predict.ScoreResult, error) {
	return nil, f.err
}

func (f fakePredictor) Stats() predict.Stats {
	return predict.Stats{Requests: 3, Errors: 1, ScorerCalls: 2}
}

func TestPredict_Overloaded(t *testing.T) {
	t.Parallel()

	h := NewHandler(fakePredictor{err: predict.ErrOverloaded}, testIndexes(), nil, "test")
	w := postPredict(t, h.Predict, `{"userId":"u1","movieIds":["m1"]}`)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if body := decodeBody(t, w); body["error"] != "Service overloaded" {
		t.Errorf("body = %v", body)
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	unhealthy := func(context.Context) error { return errors.New("model not loaded") }
	healthy := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		indexes    Indexes
		check      HealthCheck
		wantStatus int
	}{
		{"loaded", testIndexes(), healthy, http.StatusOK},
		{"no check", testIndexes(), nil, http.StatusOK},
		{"no snapshot", index.NewRegistry(index.Source{}, zerolog.Nop()), healthy, http.StatusServiceUnavailable},
		{"scorer down", testIndexes(), unhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(fakePredictor{}, tt.indexes, tt.check, "test")
			w := httptest.NewRecorder()
			h.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var resp readyResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if tt.wantStatus == http.StatusOK && (resp.Users != 2 || resp.Movies != 3 || resp.IndexVersion != 1) {
				t.Errorf("ready = %+v", resp)
			}
		})
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	h := NewHandler(fakePredictor{}, testIndexes(), nil, "test")
	w := httptest.NewRecorder()
	h.Stats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	var resp statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Predict.Requests != 3 || resp.Movies != 3 || resp.Users != 2 {
		t.Errorf("stats = %+v", resp)
	}
}

func TestReload_NoSource(t *testing.T) {
	t.Parallel()

	h := NewHandler(fakePredictor{}, testIndexes(), nil, "test")
	w := httptest.NewRecorder()
	h.Reload(w, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != index.ErrNoSource.Error() {
		t.Errorf("body = %v", body)
	}
}
