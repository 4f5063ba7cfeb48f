// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/airpulse/internal/aggregator"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/models"
)

// session resolves the {sessionID} path parameter and marks the session
// active. It writes the error response and returns false when the session
// does not exist.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*aggregator.Aggregator, bool) {
	agg, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return nil, false
	}
	return agg, true
}

// CreateSession starts a new dashboard session.
//
// POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, err := h.sessions.Create()
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}

	snap, err := agg.Snapshot(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}

	logging.Ctx(r.Context()).Info().Str("session_id", agg.ID()).Msg("session created")
	respondSuccess(w, http.StatusCreated, snap, start)
}

// DeleteSession stops a session and disconnects its push clients.
//
// DELETE /api/v1/sessions/{sessionID}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Delete(id); err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"session_id": id, "deleted": true}, start)
}

// SelectGroup resolves a group and makes it the session's scope with every
// member selected. On upstream failure the previous scope is kept and the
// session status becomes "error".
//
// PUT /api/v1/sessions/{sessionID}/group
func (h *Handler) SelectGroup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := agg.SelectGroup(r.Context(), req.GroupID); err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}

	snap, err := agg.Snapshot(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, snap, start)
}

// SetSelection replaces the selected subset of the current group.
//
// PUT /api/v1/sessions/{sessionID}/selection
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SetSelectionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	selected, err := agg.SetSelection(r.Context(), req.DeviceIDs)
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"selected": selected}, start)
}

// Live returns the live state of every selected device that has reported.
//
// GET /api/v1/sessions/{sessionID}/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	live, err := agg.Live(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, live, start)
}

// Focus returns the focused device.
//
// GET /api/v1/sessions/{sessionID}/focus
func (h *Handler) Focus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	focus, err := agg.Focus(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, focus, start)
}

// Pin pins a live device as the focus.
//
// PUT /api/v1/sessions/{sessionID}/focus/pin
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PinRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	focus, err := agg.Pin(r.Context(), req.DeviceID)
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, focus, start)
}

// Unpin releases the pin and resumes rotation.
//
// DELETE /api/v1/sessions/{sessionID}/focus/pin
func (h *Handler) Unpin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	focus, err := agg.Unpin(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, focus, start)
}

// SetRotation enables or disables focus rotation and optionally changes
// its interval.
//
// PUT /api/v1/sessions/{sessionID}/focus/rotation
func (h *Handler) SetRotation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	var req RotationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	interval := time.Duration(req.IntervalSeconds) * time.Second
	focus, err := agg.SetRotation(r.Context(), *req.Enabled, interval)
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, focus, start)
}

// FocusHistory returns the history of the focused device.
//
// GET /api/v1/sessions/{sessionID}/focus/history?window=15M
func (h *Handler) FocusHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	window, err := models.ParseHistoryWindow(h.windowParam(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "window must be one of: 5M, 15M, 3H, 5H, 1D", nil)
		return
	}
	series, err := agg.FocusHistory(r.Context(), window)
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondSuccess(w, http.StatusOK, series, start)
}

// Aggregate returns the group mean of every field.
//
// GET /api/v1/sessions/{sessionID}/aggregate
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := agg.Aggregate(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, snap, start)
}

// Status returns the session status (idle, loading, live, no_data, error).
//
// GET /api/v1/sessions/{sessionID}/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	status, err := agg.Status(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, status, start)
}

// Snapshot returns group, selection, live state, focus, aggregate and
// status in one consistent document.
//
// GET /api/v1/sessions/{sessionID}/snapshot
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	agg, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := agg.Snapshot(r.Context())
	if err != nil {
		respondAppError(w, err, http.StatusInternalServerError)
		return
	}
	respondSuccess(w, http.StatusOK, snap, start)
}

// windowParam returns the window query parameter or the configured default.
func (h *Handler) windowParam(r *http.Request) string {
	if w := r.URL.Query().Get("window"); w != "" {
		return w
	}
	if h.config != nil && h.config.History.DefaultWindow != "" {
		return h.config.History.DefaultWindow
	}
	return string(models.Window15M)
}
