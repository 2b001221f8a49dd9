// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package api provides Ceema's HTTP surface on a chi router.
//
// Public routes:
//
//	GET  /health   liveness, always {"status":"healthy"}
//	GET  /ready    503 until an index snapshot is loaded and the scorer is healthy
//	GET  /metrics  Prometheus exposition
//	POST /predict  {"userId": ..., "movieIds": [...]} -> {"predictions": [...], "status": "success"}
//
// Admin routes, mounted only when a JWT manager is configured:
//
//	POST /admin/reload  re-read the identifier index files
//	GET  /admin/stats   request counters and snapshot details
//
// Every error uses the envelope {"error": message, "status": "error"}.
// Prediction errors map to status codes in writePredictError: an unknown
// user or, under the fail-request policy, an unknown movie is 400, an
// exhausted scorer capacity is 503, and everything else is 500.
package api
