// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tomtom215/airpulse/internal/aggregator"
	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/stream"
	"github.com/tomtom215/airpulse/internal/upstream"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		fallback   int
		wantStatus int
		wantCode   string
	}{
		{"unknown session", aggregator.ErrUnknownSession, http.StatusInternalServerError, http.StatusNotFound, codeSessionNotFound},
		{"wrapped unknown device", fmt.Errorf("select: %w: X", aggregator.ErrUnknownDevice), http.StatusInternalServerError, http.StatusUnprocessableEntity, codeDeviceNotFound},
		{"not live", aggregator.ErrDeviceNotLive, http.StatusInternalServerError, http.StatusConflict, codeDeviceNotLive},
		{"superseded", aggregator.ErrSuperseded, http.StatusBadGateway, http.StatusConflict, codeSuperseded},
		{"session limit", aggregator.ErrTooManySessions, http.StatusInternalServerError, http.StatusServiceUnavailable, codeTooManySessions},
		{"group not found", fmt.Errorf("resolve group %q: %w", "g", upstream.ErrNotFound), http.StatusBadGateway, http.StatusNotFound, codeNotFound},
		{"circuit open", upstream.ErrCircuitOpen, http.StatusBadGateway, http.StatusServiceUnavailable, codeServiceUnavailable},
		{"token expired", upstream.ErrTokenExpired, http.StatusBadGateway, http.StatusBadGateway, codeUpstream},
		{"bad template", fmt.Errorf("group: %w", stream.ErrInvalidTopicTemplate), http.StatusBadGateway, http.StatusBadGateway, codeUpstream},
		{"bad window", models.ErrInvalidWindow, http.StatusBadGateway, http.StatusBadRequest, codeValidation},
		{"timeout", context.DeadlineExceeded, http.StatusBadGateway, http.StatusGatewayTimeout, codeTimeout},
		{"unmapped upstream", errors.New("500 from upstream"), http.StatusBadGateway, http.StatusBadGateway, codeUpstream},
		{"unmapped internal", errors.New("boom"), http.StatusInternalServerError, http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, msg := classifyError(tt.err, tt.fallback)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("got %d %s, want %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
			if msg == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\tc"); got != `a\x0ab\x09c` {
		t.Errorf("got %q", got)
	}
	if got := sanitizeLogValue("plain"); got != "plain" {
		t.Errorf("got %q", got)
	}
}
