// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/airpulse/internal/middleware"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, codeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		// The push upgrade must not pass through gzip.
		r.With(router.chiMiddleware.RateLimitWebSocket()).
			Get("/sessions/{sessionID}/ws", h.SessionWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(middleware.Compression)

			r.Get("/groups", h.ListGroups)
			r.Get("/devices/{deviceID}/history", h.DeviceHistory)

			r.With(router.chiMiddleware.RateLimitSessionCreate()).Post("/sessions", h.CreateSession)

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Delete("/", h.DeleteSession)
				r.Put("/group", h.SelectGroup)
				r.Put("/selection", h.SetSelection)
				r.Get("/live", h.Live)
				r.Get("/aggregate", h.Aggregate)
				r.Get("/status", h.Status)
				r.Get("/snapshot", h.Snapshot)
				r.Get("/focus", h.Focus)
				r.Put("/focus/pin", h.Pin)
				r.Delete("/focus/pin", h.Unpin)
				r.Put("/focus/rotation", h.SetRotation)
				r.Get("/focus/history", h.FocusHistory)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
