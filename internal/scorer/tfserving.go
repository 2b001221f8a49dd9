// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package scorer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// maxErrorBody caps how much of a failed response is copied into the error.
const maxErrorBody = 512

// TFServingConfig describes a model served by TensorFlow Serving's REST API.
type TFServingConfig struct {
	// Endpoint is the REST base URL, e.g. http://tfserving:8501.
	Endpoint string

	// Model is the served model name.
	Model string

	// Version pins a model version. Empty uses the latest.
	Version string

	// Signature defaults to serving_default.
	Signature string

	// UserInput and ItemInput are the model's input tensor names.
	UserInput string
	ItemInput string

	// Token, when set, is sent as a bearer token.
	Token string

	// Timeout bounds each HTTP round trip.
	Timeout time.Duration
}

// TFServing scores pairs by calling the model's :predict endpoint with the
// columnar ("inputs") request format, which maps directly onto a two-input
// Keras model.
type TFServing struct {
	cfg        TFServingConfig
	predictURL string
	statusURL  string
	client     *http.Client
}

// NewTFServing validates cfg and builds a client.
func NewTFServing(cfg TFServingConfig) (*TFServing, error) {
	if cfg.Endpoint == "" || cfg.Model == "" {
		return nil, fmt.Errorf("tfserving: endpoint and model are required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("tfserving: invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if cfg.Signature == "" {
		cfg.Signature = "serving_default"
	}
	if cfg.UserInput == "" {
		cfg.UserInput = "user"
	}
	if cfg.ItemInput == "" {
		cfg.ItemInput = "movie"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	base := strings.TrimRight(cfg.Endpoint, "/") + "/v1/models/" + url.PathEscape(cfg.Model)
	if cfg.Version != "" {
		base += "/versions/" + url.PathEscape(cfg.Version)
	}

	return &TFServing{
		cfg:        cfg,
		predictURL: base + ":predict",
		statusURL:  base,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name implements predict.Named.
func (c *TFServing) Name() string {
	return "tfserving"
}

type tfPredictRequest struct {
	SignatureName string           `json:"signature_name,omitempty"`
	Inputs        map[string][]int `json:"inputs"`
}

type tfPredictResponse struct {
	Outputs     json.RawMessage `json:"outputs"`
	Predictions json.RawMessage `json:"predictions"`
	Error       string          `json:"error"`
}

// Score implements predict.Scorer.
func (c *TFServing) Score(ctx context.Context, users, items []int) ([]float64, error) {
	body, err := json.Marshal(tfPredictRequest{
		SignatureName: c.cfg.Signature,
		Inputs: map[string][]int{
			c.cfg.UserInput: users,
			c.cfg.ItemInput: items,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tfserving request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("tfserving returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out tfPredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("tfserving: %s", out.Error)
	}

	raw := out.Outputs
	if len(raw) == 0 {
		raw = out.Predictions
	}
	return parseScores(raw)
}

// parseScores accepts [s, s, ...] and [[s], [s], ...]. A single-output
// Keras model returns the nested form.
func parseScores(raw json.RawMessage) ([]float64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("predict response has no outputs")
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("unexpected outputs shape: %w", err)
	}
	scores := make([]float64, len(nested))
	for i, row := range nested {
		if len(row) != 1 {
			return nil, fmt.Errorf("output row %d has %d values, want 1", i, len(row))
		}
		scores[i] = row[0]
	}
	return scores, nil
}

// Health checks that the model reports an AVAILABLE version.
func (c *TFServing) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tfserving status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tfserving status returned %d", resp.StatusCode)
	}

	var status struct {
		ModelVersionStatus []struct {
			Version string `json:"version"`
			State   string `json:"state"`
		} `json:"model_version_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %s has no AVAILABLE version", c.cfg.Model)
}

func (c *TFServing) authorize(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}
