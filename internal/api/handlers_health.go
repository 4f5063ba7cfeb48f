// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/airpulse/internal/models"
)

// upstreamPingTimeout bounds the upstream probe of the health endpoints.
const upstreamPingTimeout = 3 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	Mode              string  `json:"mode"`
	UpstreamConnected bool    `json:"upstream_connected"`
	ActiveSessions    int     `json:"active_sessions"`
	PushClients       int     `json:"push_clients"`
	Uptime            float64 `json:"uptime"`
}

func (h *Handler) upstreamConnected(ctx context.Context) bool {
	if h.upstream == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, upstreamPingTimeout)
	defer cancel()
	return h.upstream.Ping(ctx) == nil
}

// Health reports overall service health. Upstream failure degrades the
// status but still returns 200.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.upstreamConnected(r.Context())
	status := "healthy"
	if !connected {
		status = "degraded"
	}

	health := HealthStatus{
		Status:            status,
		Version:           h.version,
		UpstreamConnected: connected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.config != nil {
		health.Mode = h.config.Upstream.Mode
	}
	if h.sessions != nil {
		health.ActiveSessions = h.sessions.Count()
	}
	if h.wsHub != nil {
		health.PushClients = h.wsHub.GetClientCount()
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

// HealthLive returns 200 while the process is alive, regardless of
// dependencies.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

// HealthReady returns 200 only when the upstream group service answers.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	connected := h.upstreamConnected(r.Context())

	statusCode := http.StatusOK
	status := "ready"
	if !connected {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"upstream_connected": connected,
			"ready_to_serve":     connected,
			"uptime":             time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}
