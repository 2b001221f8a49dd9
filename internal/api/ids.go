// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package api

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// errBadID is wrapped by FlexibleID.UnmarshalJSON.
var errBadID = errors.New("must be a string or number")

// FlexibleID is an identifier sent as either a JSON string or a JSON number.
// Numbers keep their literal text, so 101 and "101" are the same ID while
// 1e2 stays "1e2" and never matches "100". Booleans and null are rejected.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errBadID
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("identifier: %w", err)
		}
		*id = FlexibleID(s)
		return nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("identifier %s: %w", data, errBadID)
		}
		*id = FlexibleID(n.String())
		return nil
	default:
		return fmt.Errorf("identifier %s: %w", data, errBadID)
	}
}

// String returns the identifier text.
func (id FlexibleID) String() string {
	return string(id)
}

func idStrings(ids []FlexibleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
