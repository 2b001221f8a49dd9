// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/ceema/internal/auth"
	"github.com/tomtom215/ceema/internal/middleware"
)

// defaultSlowRequest is the access log threshold for flagging a slow request.
const defaultSlowRequest = time.Second

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Middleware builds CORS and the /predict rate limiter. Nil uses
	// DefaultChiMiddlewareConfig.
	Middleware *ChiMiddleware

	// JWT guards /admin. Nil leaves the admin routes unmounted.
	JWT *auth.JWTManager

	// MaxBodyBytes caps /predict request bodies. Zero disables the cap.
	MaxBodyBytes int64

	// SlowRequest is the access log threshold. Zero uses one second.
	SlowRequest time.Duration
}

// Router owns the chi route table.
type Router struct {
	handler *Handler
	opts    RouterOptions
}

// NewRouter creates a router serving h.
func NewRouter(h *Handler, opts RouterOptions) *Router {
	if opts.Middleware == nil {
		opts.Middleware = NewChiMiddleware(nil)
	}
	if opts.SlowRequest <= 0 {
		opts.SlowRequest = defaultSlowRequest
	}
	return &Router{handler: h, opts: opts}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(router.opts.SlowRequest))
	r.Use(chimiddleware.Recoverer)
	r.Use(router.opts.Middleware.CORS())
	r.Use(middleware.PrometheusMetrics)
	r.Use(APISecurityHeaders())

	r.NotFound(router.handler.NotFound)
	r.MethodNotAllowed(router.handler.MethodNotAllowed)

	// Probes
	r.Get("/health", router.handler.Health)
	r.Get("/ready", router.handler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.With(
		router.opts.Middleware.RateLimit(),
		middleware.MaxBodyBytes(router.opts.MaxBodyBytes),
	).Post("/predict", router.handler.Predict)

	if router.opts.JWT != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(router.opts.JWT, auth.RoleAdmin))
			r.Post("/reload", router.handler.Reload)
			r.Get("/stats", router.handler.Stats)
		})
	}

	return r
}
