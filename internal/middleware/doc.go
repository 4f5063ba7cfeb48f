// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package middleware provides HTTP middleware for the AirPulse API.

All middleware use the chi signature func(http.Handler) http.Handler.

Key Components:

  - RequestID: reuses or generates X-Request-ID and seeds the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge labelled by
    chi route pattern
  - Compression: pooled gzip writers for JSON responses

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(corsOptions))
	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Group(func(r chi.Router) {
	    r.Use(middleware.Compression)
	    // JSON routes
	})

The push WebSocket route is registered outside the compression group;
PrometheusMetrics supports hijacking so upgrades pass through it.
*/
package middleware
