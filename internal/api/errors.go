// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/airpulse/internal/aggregator"
	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/stream"
	"github.com/tomtom215/airpulse/internal/upstream"
)

// Error codes for API responses.
const (
	codeValidation         = "VALIDATION_ERROR"
	codeSessionNotFound    = "SESSION_NOT_FOUND"
	codeTooManySessions    = "TOO_MANY_SESSIONS"
	codeDeviceNotFound     = "DEVICE_NOT_FOUND"
	codeDeviceNotLive      = "DEVICE_NOT_LIVE"
	codeNoGroup            = "NO_GROUP"
	codeNoFocus            = "NO_FOCUS"
	codeSuperseded         = "SUPERSEDED"
	codeNotFound           = "NOT_FOUND"
	codeUpstream           = "UPSTREAM_ERROR"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
	codeTimeout            = "TIMEOUT"
	codeInternal           = "INTERNAL_ERROR"
)

// errorMapping maps a sentinel error to a response.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{aggregator.ErrUnknownSession, http.StatusNotFound, codeSessionNotFound, "Session not found"},
	{aggregator.ErrClosed, http.StatusNotFound, codeSessionNotFound, "Session is closed"},
	{aggregator.ErrTooManySessions, http.StatusServiceUnavailable, codeTooManySessions, "Session limit reached"},
	{aggregator.ErrUnknownDevice, http.StatusUnprocessableEntity, codeDeviceNotFound, "Device is not a member of the current group"},
	{aggregator.ErrDeviceNotLive, http.StatusConflict, codeDeviceNotLive, "Device has no live data"},
	{aggregator.ErrNoGroup, http.StatusConflict, codeNoGroup, "No group selected"},
	{aggregator.ErrNoFocus, http.StatusConflict, codeNoFocus, "No device in focus"},
	{aggregator.ErrSuperseded, http.StatusConflict, codeSuperseded, "Group selection superseded by a newer request"},
	{models.ErrInvalidWindow, http.StatusBadRequest, codeValidation, "Invalid history window"},
	{stream.ErrInvalidTopicTemplate, http.StatusBadGateway, codeUpstream, "Group has an invalid topic template"},
	{upstream.ErrNotFound, http.StatusNotFound, codeNotFound, "Not found upstream"},
	{upstream.ErrCircuitOpen, http.StatusServiceUnavailable, codeServiceUnavailable, "Upstream temporarily unavailable"},
	{upstream.ErrTokenExpired, http.StatusBadGateway, codeUpstream, "Upstream credentials expired"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, codeTimeout, "Request timed out"},
	{context.Canceled, http.StatusServiceUnavailable, codeServiceUnavailable, "Request canceled"},
}

// classifyError returns the status, code and message for err. Errors
// without a mapping become fallbackStatus.
func classifyError(err error, fallbackStatus int) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message
		}
	}
	if fallbackStatus == http.StatusBadGateway {
		return http.StatusBadGateway, codeUpstream, "Upstream request failed"
	}
	return http.StatusInternalServerError, codeInternal, "Internal server error"
}

// respondAppError writes the response mapped from err. Operations that call
// the upstream pass http.StatusBadGateway as fallback.
func respondAppError(w http.ResponseWriter, err error, fallbackStatus int) {
	status, code, message := classifyError(err, fallbackStatus)
	respondError(w, status, code, message, err)
}
