// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"net/http"

	"github.com/tomtom215/airpulse/internal/logging"
	ws "github.com/tomtom215/airpulse/internal/websocket"
)

// SessionWebSocket upgrades to the push stream of one session. Every
// device_update, focus, aggregate and status event of the session is
// delivered; the first messages after connecting are the current focus,
// aggregate and status.
//
// GET /api/v1/sessions/{sessionID}/ws
func (h *Handler) SessionWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, codeServiceUnavailable, "Push stream not available", nil)
		return
	}

	agg, ok := h.session(w, r)
	if !ok {
		return
	}

	snap, err := agg.Snapshot(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	// The initial state goes to this client only and is queued before
	// registration so later session events follow it.
	client := ws.NewClient(h.wsHub, conn, agg.ID())
	client.Send(ws.MessageTypeFocus, snap.Focus)
	client.Send(ws.MessageTypeAggregate, snap.Aggregate)
	client.Send(ws.MessageTypeStatus, snap.Status)

	h.wsHub.Register <- client
	client.Start()
}
