// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package index

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for file extensions LoadFile cannot parse.
var ErrUnsupportedFormat = errors.New("unsupported index format")

// LoadFile reads an index from path. The format is chosen by extension:
//
//   - .json: {"id": position, ...} or ["id0", "id1", ...]
//   - .yaml, .yml: the same two shapes in YAML
//   - .csv: rows of id,position with an optional header row
//
// Mapping exports from the training pipeline write numeric identifiers as
// strings; they are looked up by their decimal text.
func LoadFile(name, path string) (*Index, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read %s index: %w", name, err)
	}

	var idx *Index
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		idx, err = parseJSON(name, data)
	case ".yaml", ".yml":
		idx, err = parseYAML(name, data)
	case ".csv":
		idx, err = parseCSV(name, data)
	default:
		return nil, fmt.Errorf("%s index %s: %w", name, path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return idx, nil
}

func parseJSON(name string, data []byte) (*Index, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return New(name, nil)
	}

	if trimmed[0] == '[' {
		var keys []string
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return nil, fmt.Errorf("decode %s key list: %w", name, err)
		}
		return FromKeys(name, keys)
	}

	var raw map[string]json.Number
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode %s mapping: %w", name, err)
	}

	m := make(map[string]int, len(raw))
	for key, num := range raw {
		pos, err := numberToPosition(num)
		if err != nil {
			return nil, fmt.Errorf("%s index: %q: %w", name, key, err)
		}
		m[key] = pos
	}
	return New(name, m)
}

// numberToPosition accepts integral floats ("3.0") because numpy exports
// often write positions that way.
func numberToPosition(num json.Number) (int, error) {
	if n, err := num.Int64(); err == nil {
		return int(n), nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("position %q is not a number", num.String())
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("position %q is not an integer", num.String())
	}
	return int(f), nil
}

func parseYAML(name string, data []byte) (*Index, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s yaml: %w", name, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return New(name, nil)
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		var m map[string]int
		if err := root.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode %s mapping: %w", name, err)
		}
		return New(name, m)
	case yaml.SequenceNode:
		var keys []string
		if err := root.Decode(&keys); err != nil {
			return nil, fmt.Errorf("decode %s key list: %w", name, err)
		}
		return FromKeys(name, keys)
	default:
		return nil, fmt.Errorf("%s yaml: expected a mapping or a list at the top level", name)
	}
}

func parseCSV(name string, data []byte) (*Index, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	m := make(map[string]int)
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s csv: %w", name, err)
		}

		key := strings.TrimSpace(rec[0])
		pos, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("%s csv line %d: position %q is not an integer", name, line, rec[1])
		}
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("%s csv line %d: identifier %q repeated", name, line, key)
		}
		m[key] = pos
	}
	return New(name, m)
}
