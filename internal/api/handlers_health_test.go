// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/airpulse/internal/upstream"
)

// downClient fails every upstream call.
type downClient struct{ upstream.Client }

func (downClient) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 10)
	api.createSession(t)

	status, env := api.do(t, http.MethodGet, "/api/v1/health", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var health HealthStatus
	decode(t, env, &health)
	if health.Status != "healthy" || !health.UpstreamConnected {
		t.Errorf("health = %+v", health)
	}
	if health.ActiveSessions != 1 {
		t.Errorf("active sessions = %d, want 1", health.ActiveSessions)
	}
	if health.Mode != "mock" {
		t.Errorf("mode = %q", health.Mode)
	}
}

func TestHealthLive(t *testing.T) {
	api := newTestAPI(t, 10)
	status, env := api.do(t, http.MethodGet, "/api/v1/health/live", "")
	if status != http.StatusOK || env.Status != "success" {
		t.Errorf("live probe: %d %q", status, env.Status)
	}
}

func TestHealthReady_UpstreamDown(t *testing.T) {
	h := NewHandler(nil, downClient{}, nil, testConfig())

	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	var resp struct {
		Data HealthStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Data.Status != "degraded" {
		t.Errorf("health = %d %+v", rec.Code, resp.Data)
	}
}

func TestHealthReady_Ready(t *testing.T) {
	api := newTestAPI(t, 10)
	status, env := api.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if status != http.StatusOK || env.Status != "ready" {
		t.Errorf("ready probe: %d %q", status, env.Status)
	}
}
