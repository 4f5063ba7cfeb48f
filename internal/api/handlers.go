// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/airpulse/internal/aggregator"
	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/upstream"
	ws "github.com/tomtom215/airpulse/internal/websocket"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, upgrader
//   - handlers_helpers.go: response and request helpers
//   - handlers_health.go: health and probe endpoints
//   - handlers_sessions.go: session, scope and focus endpoints
//   - handlers_devices.go: group listing and device history
//   - handlers_websocket.go: per-session push stream
type Handler struct {
	sessions  *aggregator.Manager
	upstream  upstream.Client
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
	version   string
}

// NewHandler creates a new API handler.
//
// Example:
//
//	handler := api.NewHandler(manager, client, hub, cfg)
//	router := api.NewRouter(handler, cfg)
//	http.ListenAndServe(":3857", router.SetupChi())
func NewHandler(sessions *aggregator.Manager, client upstream.Client, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		sessions:  sessions,
		upstream:  client,
		wsHub:     hub,
		config:    cfg,
		startTime: time.Now(),
		version:   "dev",
	}
}

// SetVersion sets the version reported by the health endpoint.
func (h *Handler) SetVersion(v string) {
	h.version = v
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins against the
// configured CORS origins. Browsers always send Origin, so a missing header
// is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}
