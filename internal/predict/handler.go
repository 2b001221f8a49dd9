// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/ceema/internal/cache"
	"github.com/tomtom215/ceema/internal/index"
	"github.com/tomtom215/ceema/internal/logging"
	"github.com/tomtom215/ceema/internal/metrics"
)

// SnapshotSource supplies the active index snapshot. *index.Registry
// implements it.
type SnapshotSource interface {
	Current() *index.Snapshot
}

// Handler resolves identifiers and calls the Scorer. It is safe for
// concurrent use.
type Handler struct {
	cfg     *Config
	indexes SnapshotSource
	scorer  Scorer
	backend string
	cache   cache.ScoreCache
	sem     *semaphore.Weighted
	logger  zerolog.Logger

	requestCount atomic.Int64
	errorCount   atomic.Int64
	scorerCalls  atomic.Int64
}

// Stats is a point-in-time view of Handler counters.
type Stats struct {
	Requests    int64 `json:"requests"`
	Errors      int64 `json:"errors"`
	ScorerCalls int64 `json:"scorer_calls"`
}

// NewHandler validates cfg and builds a Handler. A nil cfg uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(cfg *Config, indexes SnapshotSource, scorer Scorer, logger zerolog.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid predict config: %w", err)
	}
	if indexes == nil {
		return nil, errors.New("predict: index source is required")
	}
	if scorer == nil {
		return nil, errors.New("predict: scorer is required")
	}

	// Normalise aliases so comparisons below only see canonical values.
	policy, _ := ParsePolicy(string(cfg.UnresolvedPolicy))
	normalized := *cfg
	normalized.UnresolvedPolicy = policy

	h := &Handler{
		cfg:     &normalized,
		indexes: indexes,
		scorer:  scorer,
		backend: scorerName(scorer),
		logger:  logger.With().Str("component", "predict").Logger(),
	}
	if cfg.MaxConcurrent > 0 {
		h.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return h, nil
}

// SetCache enables score caching. Call before serving requests.
func (h *Handler) SetCache(c cache.ScoreCache) {
	h.cache = c
}

// Policy returns the active unresolved-item policy.
func (h *Handler) Policy() UnresolvedPolicy {
	return h.cfg.UnresolvedPolicy
}

// Stats returns request counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Requests:    h.requestCount.Load(),
		Errors:      h.errorCount.Load(),
		ScorerCalls: h.scorerCalls.Load(),
	}
}

// Predict scores req.ItemIDs for req.UserID. On success the result has one
// entry per input movie in input order, except under PolicyDrop where
// unknown movies are omitted. The result is never nil on success.
//
//nolint:gocritic // hugeParam: req passed by value so callers keep their slice
func (h *Handler) Predict(ctx context.Context, req Request) ([]ScoreResult, error) {
	h.requestCount.Add(1)

	results, err := h.predict(ctx, req)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		h.errorCount.Add(1)
		outcome = outcomeFor(err)
		logging.Scoped(ctx, h.logger).Debug().
			Err(err).
			Str("kind", string(KindOf(err))).
			Str("user_id", req.UserID).
			Int("items", len(req.ItemIDs)).
			Msg("prediction failed")
	}
	metrics.RecordPrediction(outcome, len(req.ItemIDs))
	return results, err
}

//nolint:gocritic // hugeParam: see Predict
func (h *Handler) predict(ctx context.Context, req Request) ([]ScoreResult, error) {
	snap := h.indexes.Current()
	if snap == nil {
		return nil, internal("resolve", ErrNoSnapshot)
	}

	userPos, ok := snap.Users.Lookup(req.UserID)
	if !ok {
		return nil, ErrUnknownUser
	}

	ids, positions, err := h.resolveItems(snap.Items, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return []ScoreResult{}, nil
	}

	scores, err := h.score(ctx, snap.Version, userPos, positions)
	if err != nil {
		if errors.Is(err, ErrOverloaded) {
			return nil, err
		}
		return nil, internal("score", err)
	}

	results := make([]ScoreResult, len(ids))
	for i, id := range ids {
		results[i] = ScoreResult{ItemID: id, Score: scores[i]}
	}
	return results, nil
}

// resolveItems maps movie IDs to positions according to the policy. The
// returned ids and positions are aligned.
func (h *Handler) resolveItems(items *index.Index, itemIDs []string) ([]string, []int, error) {
	ids := make([]string, 0, len(itemIDs))
	positions := make([]int, 0, len(itemIDs))
	var unresolved []string

	for _, id := range itemIDs {
		pos, ok := items.Lookup(id)
		if !ok {
			unresolved = append(unresolved, id)
			switch h.cfg.UnresolvedPolicy {
			case PolicyDrop, PolicyFailRequest:
				continue
			default:
				pos = Sentinel
			}
		}
		ids = append(ids, id)
		positions = append(positions, pos)
	}

	metrics.RecordUnresolvedItems(string(h.cfg.UnresolvedPolicy), len(unresolved))
	if len(unresolved) > 0 && h.cfg.UnresolvedPolicy == PolicyFailRequest {
		return nil, nil, &UnresolvedItemError{ItemIDs: unresolved}
	}
	return ids, positions, nil
}

// score returns one score per position, consulting the cache first. The
// Scorer is called at most once, with the cache misses only.
func (h *Handler) score(ctx context.Context, version uint64, userPos int, positions []int) ([]float64, error) {
	scores := make([]float64, len(positions))

	var keys []cache.Key
	var found []bool
	if h.cache != nil {
		keys = make([]cache.Key, len(positions))
		for i, pos := range positions {
			keys[i] = cache.Key{Version: version, User: userPos, Item: pos}
		}
		var cached []float64
		cached, found = h.cache.GetMany(keys)
		copy(scores, cached)
	}

	missing := make([]int, 0, len(positions))
	for i := range positions {
		if found == nil || !found[i] {
			missing = append(missing, i)
		}
	}
	if h.cache != nil {
		metrics.RecordCacheLookup(len(positions)-len(missing), len(missing))
	}
	if len(missing) == 0 {
		return scores, nil
	}

	users := make([]int, len(missing))
	items := make([]int, len(missing))
	for j, i := range missing {
		users[j] = userPos
		items[j] = positions[i]
	}

	got, err := h.callScorer(ctx, users, items)
	if err != nil {
		return nil, err
	}

	for j, i := range missing {
		scores[i] = got[j]
	}

	if h.cache != nil {
		fill := make([]cache.Key, 0, len(missing))
		vals := make([]float64, 0, len(missing))
		for j, i := range missing {
			if items[j] == Sentinel {
				continue
			}
			fill = append(fill, keys[i])
			vals = append(vals, got[j])
		}
		h.cache.SetMany(fill, vals)
	}
	return scores, nil
}

type scoreReply struct {
	scores []float64
	err    error
}

// callScorer runs one Scorer call under admission control and the timeout.
// The call runs on its own goroutine so a Scorer that ignores its context
// cannot hold the request past ScorerTimeout. The admission slot is held
// until the Scorer actually returns.
func (h *Handler) callScorer(ctx context.Context, users, items []int) ([]float64, error) {
	if err := h.admit(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if h.cfg.ScorerTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, h.cfg.ScorerTimeout)
	}
	defer cancel()

	h.scorerCalls.Add(1)
	start := time.Now()
	replyCh := make(chan scoreReply, 1)
	go func() {
		replyCh <- h.invoke(callCtx, users, items)
	}()

	var reply scoreReply
	select {
	case reply = <-replyCh:
	case <-callCtx.Done():
		reply.err = callCtx.Err()
	}

	err := h.checkReply(ctx, callCtx, reply, len(items))
	metrics.RecordScorerCall(h.backend, len(items), time.Since(start), failureReason(err))
	if err != nil {
		return nil, err
	}
	return reply.scores, nil
}

// invoke runs the Scorer, converting a panic into an error, and frees the
// admission slot before handing the reply back.
func (h *Handler) invoke(ctx context.Context, users, items []int) (reply scoreReply) {
	defer func() {
		if r := recover(); r != nil {
			reply = scoreReply{err: fmt.Errorf("scorer panicked: %v", r)}
		}
		h.release()
	}()
	scores, err := h.scorer.Score(ctx, users, items)
	return scoreReply{scores: scores, err: err}
}

func (h *Handler) checkReply(parent, callCtx context.Context, reply scoreReply, want int) error {
	if reply.err != nil {
		if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v", ErrScorerTimeout, h.cfg.ScorerTimeout)
		}
		return reply.err
	}
	if len(reply.scores) != want {
		return errCountMismatch(len(reply.scores), want)
	}
	for i, s := range reply.scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("scorer returned non-finite score %v at position %d", s, i)
		}
	}
	return nil
}

func (h *Handler) admit(ctx context.Context) error {
	if h.sem == nil {
		return nil
	}
	if !h.sem.TryAcquire(1) {
		if h.cfg.AdmissionWait <= 0 {
			return ErrOverloaded
		}
		waitCtx, cancel := context.WithTimeout(ctx, h.cfg.AdmissionWait)
		defer cancel()
		if err := h.sem.Acquire(waitCtx, 1); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrOverloaded
		}
	}
	metrics.AdmissionInFlight.Inc()
	return nil
}

func (h *Handler) release() {
	if h.sem == nil {
		return
	}
	metrics.AdmissionInFlight.Dec()
	h.sem.Release(1)
}

func outcomeFor(err error) string {
	switch KindOf(err) {
	case KindUnknownUser:
		return metrics.OutcomeUnknownUser
	case KindUnresolvedItem:
		return metrics.OutcomeUnresolvedItem
	case KindOverloaded:
		return metrics.OutcomeOverloaded
	default:
		return metrics.OutcomeError
	}
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrScorerTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
