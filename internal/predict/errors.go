// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package predict

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownUser is returned when the user index does not contain the user.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnresolvedItem is wrapped by *UnresolvedItemError.
	ErrUnresolvedItem = errors.New("unknown movie")

	// ErrOverloaded is returned when admission control rejects a request.
	ErrOverloaded = errors.New("prediction capacity exhausted")

	// ErrNoSnapshot is returned before the first index snapshot is loaded.
	ErrNoSnapshot = errors.New("identifier indexes not loaded")

	// ErrScorerTimeout is wrapped when the Scorer exceeds ScorerTimeout.
	ErrScorerTimeout = errors.New("scorer timed out")
)

// Kind classifies an error returned by Handler.Predict.
type Kind string

const (
	KindUnknownUser    Kind = "UnknownUser"
	KindUnresolvedItem Kind = "UnresolvedItem"
	KindOverloaded     Kind = "Overloaded"
	KindInternal       Kind = "InternalError"
)

// KindOf maps err to its Kind. Unrecognised errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrUnknownUser):
		return KindUnknownUser
	case errors.Is(err, ErrUnresolvedItem):
		return KindUnresolvedItem
	case errors.Is(err, ErrOverloaded):
		return KindOverloaded
	default:
		return KindInternal
	}
}

// UnresolvedItemError lists movies the item index did not contain under
// PolicyFailRequest.
type UnresolvedItemError struct {
	ItemIDs []string
}

func (e *UnresolvedItemError) Error() string {
	return "Unknown movie: " + strings.Join(e.ItemIDs, ", ")
}

func (e *UnresolvedItemError) Unwrap() error {
	return ErrUnresolvedItem
}

// InternalError wraps any failure that is not the caller's fault. Its
// message is the underlying error text so callers can surface it as is.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

// errCountMismatch is returned when the Scorer breaks its length contract.
func errCountMismatch(got, want int) error {
	return fmt.Errorf("scorer returned %d scores for %d pairs", got, want)
}
