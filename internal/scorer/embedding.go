// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package scorer

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
)

// EmbeddingModel is the exported weight file of a matrix-factorisation model:
// one factor row per user and per item, plus optional biases.
type EmbeddingModel struct {
	Users      [][]float64 `json:"users"`
	Items      [][]float64 `json:"items"`
	UserBias   []float64   `json:"user_bias,omitempty"`
	ItemBias   []float64   `json:"item_bias,omitempty"`
	GlobalBias float64     `json:"global_bias,omitempty"`

	// Activation is "sigmoid" or empty for the raw dot product.
	Activation string `json:"activation,omitempty"`
}

// Embedding scores pairs in process with a dot product. It serves local
// development and small catalogues without a model server.
//
// A position outside the matrix, including the -1 sentinel, contributes a
// zero vector and zero bias, the same as an embedding lookup with no signal.
type Embedding struct {
	model EmbeddingModel
	dim   int
}

// NewEmbedding validates model dimensions.
//
//nolint:gocritic // hugeParam: model is copied once at construction
func NewEmbedding(model EmbeddingModel) (*Embedding, error) {
	dim := -1
	check := func(kind string, rows [][]float64) error {
		for i, row := range rows {
			if dim == -1 {
				dim = len(row)
			}
			if len(row) != dim {
				return fmt.Errorf("%s row %d has %d factors, want %d", kind, i, len(row), dim)
			}
		}
		return nil
	}
	if err := check("user", model.Users); err != nil {
		return nil, err
	}
	if err := check("item", model.Items); err != nil {
		return nil, err
	}
	if len(model.UserBias) != 0 && len(model.UserBias) != len(model.Users) {
		return nil, fmt.Errorf("user_bias has %d entries for %d users", len(model.UserBias), len(model.Users))
	}
	if len(model.ItemBias) != 0 && len(model.ItemBias) != len(model.Items) {
		return nil, fmt.Errorf("item_bias has %d entries for %d items", len(model.ItemBias), len(model.Items))
	}
	switch model.Activation {
	case "", "sigmoid", "linear":
	default:
		return nil, fmt.Errorf("unknown activation %q", model.Activation)
	}
	if dim < 0 {
		dim = 0
	}
	return &Embedding{model: model, dim: dim}, nil
}

// LoadEmbedding reads an EmbeddingModel from a JSON file.
func LoadEmbedding(path string) (*Embedding, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read embedding model: %w", err)
	}
	var model EmbeddingModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode embedding model %s: %w", path, err)
	}
	return NewEmbedding(model)
}

// Name implements predict.Named.
func (e *Embedding) Name() string {
	return "embedding"
}

// Score implements predict.Scorer.
func (e *Embedding) Score(ctx context.Context, users, items []int) ([]float64, error) {
	if len(users) != len(items) {
		return nil, fmt.Errorf("embedding: %d users for %d items", len(users), len(items))
	}

	scores := make([]float64, len(items))
	for i := range items {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		u := row(e.model.Users, users[i])
		v := row(e.model.Items, items[i])

		s := e.model.GlobalBias + at(e.model.UserBias, users[i]) + at(e.model.ItemBias, items[i])
		if u != nil && v != nil {
			for k := 0; k < e.dim; k++ {
				s += u[k] * v[k]
			}
		}
		if e.model.Activation == "sigmoid" {
			s = 1 / (1 + math.Exp(-s))
		}
		scores[i] = s
	}
	return scores, nil
}

// Health always succeeds; the model is in memory.
func (e *Embedding) Health(context.Context) error {
	return nil
}

func row(m [][]float64, i int) []float64 {
	if i < 0 || i >= len(m) {
		return nil
	}
	return m[i]
}

func at(v []float64, i int) float64 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}
