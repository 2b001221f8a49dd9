// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

// Package middleware provides HTTP middleware for the Ceema API.
//
// All middleware uses the func(http.Handler) http.Handler shape so it can be
// mounted directly on a chi router:
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID)
//	r.Use(middleware.AccessLog(time.Second))
//	r.Use(middleware.PrometheusMetrics)
//	r.Use(middleware.MaxBodyBytes(1 << 20))
//
// RequestID must run before AccessLog so log lines carry the request ID.
// PrometheusMetrics labels requests by chi route pattern, not raw path, so
// the endpoint label stays bounded.
package middleware
