// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/airpulse/internal/models"
)

// ListGroups returns the groups known to the group service.
//
// GET /api/v1/groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	groups, err := h.upstream.ListGroups(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	if groups == nil {
		groups = []models.GroupSummary{}
	}
	respondSuccess(w, http.StatusOK, groups, start)
}

// DeviceHistory returns the readings of one device over a window. It does
// not need a session.
//
// GET /api/v1/devices/{deviceID}/history?window=15M
func (h *Handler) DeviceHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := HistoryRequest{
		DeviceID: chi.URLParam(r, "deviceID"),
		Window:   h.windowParam(r),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorWithDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	series, err := h.upstream.History(r.Context(), req.DeviceID, models.HistoryWindow(req.Window))
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondSuccess(w, http.StatusOK, series, start)
}
