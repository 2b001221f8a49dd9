// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry at package init via
// promauto. Callers use the Record* helpers rather than touching label
// values directly so label cardinality stays under this package's control.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes used as the "outcome" label.
const (
	OutcomeSuccess        = "success"
	OutcomeUnknownUser    = "unknown_user"
	OutcomeUnresolvedItem = "unresolved_item"
	OutcomeOverloaded     = "overloaded"
	OutcomeError          = "error"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Prediction pipeline
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_requests_total",
			Help: "Prediction requests by outcome",
		},
		[]string{"outcome"},
	)

	PredictionItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "predict_request_items",
			Help:    "Number of movie identifiers per prediction request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	UnresolvedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_unresolved_items_total",
			Help: "Movie identifiers missing from the item index, by policy applied",
		},
		[]string{"policy"},
	)

	AdmissionInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "predict_admission_in_flight",
			Help: "Scorer calls currently holding an admission slot",
		},
	)

	// Scorer
	ScorerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scorer_call_duration_seconds",
			Help:    "Latency of Scorer calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	ScorerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorer_errors_total",
			Help: "Failed Scorer calls",
		},
		[]string{"backend", "reason"},
	)

	ScorerBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scorer_batch_size",
			Help:    "Pairs sent to the Scorer per call",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Identifier indexes
	IndexEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "index_entries",
			Help: "Entries in the active identifier index",
		},
		[]string{"index"}, // users, items
	)

	IndexVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_snapshot_version",
			Help: "Version of the active index snapshot",
		},
	)

	IndexReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_reloads_total",
			Help: "Index reload attempts by result",
		},
		[]string{"trigger", "result"},
	)

	// Score cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_hits_total",
			Help: "Score cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_misses_total",
			Help: "Score cache misses",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordPrediction counts one finished prediction request.
func RecordPrediction(outcome string, items int) {
	PredictionsTotal.WithLabelValues(outcome).Inc()
	PredictionItems.Observe(float64(items))
}

// RecordUnresolvedItems counts identifiers the item index did not know.
func RecordUnresolvedItems(policy string, n int) {
	if n <= 0 {
		return
	}
	UnresolvedItemsTotal.WithLabelValues(policy).Add(float64(n))
}

// RecordScorerCall records latency and batch size. reason is empty on success.
func RecordScorerCall(backend string, pairs int, duration time.Duration, reason string) {
	ScorerDuration.WithLabelValues(backend).Observe(duration.Seconds())
	ScorerBatchSize.Observe(float64(pairs))
	if reason != "" {
		ScorerErrors.WithLabelValues(backend, reason).Inc()
	}
}

// RecordIndexSnapshot publishes the sizes of a newly activated snapshot.
func RecordIndexSnapshot(version uint64, users, items int) {
	IndexVersion.Set(float64(version))
	IndexEntries.WithLabelValues("users").Set(float64(users))
	IndexEntries.WithLabelValues("items").Set(float64(items))
}

// RecordIndexReload counts reload attempts. trigger is startup, watch or api.
func RecordIndexReload(trigger string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	IndexReloads.WithLabelValues(trigger, result).Inc()
}

// RecordCacheLookup adds hit and miss counts from one batched lookup.
func RecordCacheLookup(hits, misses int) {
	if hits > 0 {
		CacheHits.Add(float64(hits))
	}
	if misses > 0 {
		CacheMisses.Add(float64(misses))
	}
}

// SetAppInfo exports the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}
