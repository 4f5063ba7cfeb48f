// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/airpulse/internal/aggregator"
	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/devicestore"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/stream"
	"github.com/tomtom215/airpulse/internal/upstream"
	ws "github.com/tomtom215/airpulse/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "error",
		Format: "console",
		Output: io.Discard,
	})
}

const testOrigin = "http://dashboard.test"

type testAPI struct {
	server   *httptest.Server
	sessions *aggregator.Manager
	hub      *ws.Hub
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Error    *models.APIError `json:"error"`
	Metadata models.Metadata  `json:"metadata"`
}

func testConfig() *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{Mode: config.ModeMock},
		History:  config.HistoryConfig{DefaultWindow: "15M", MaxPoints: 100},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{testOrigin},
			RateLimitDisabled: true,
		},
	}
}

// newTestAPI serves the full router backed by the mock upstream and mock
// streamer.
func newTestAPI(t *testing.T, maxSessions int) *testAPI {
	t.Helper()
	cfg := testConfig()
	hub := ws.NewHub()
	deps := aggregator.Deps{
		Upstream: upstream.NewMockClient(cfg.History.MaxPoints),
		Streamer: stream.NewMockStreamer(10 * time.Millisecond),
		Store:    devicestore.NewMemoryStore(time.Hour),
		Notifier: hub,
	}
	sessions := aggregator.NewManager(
		aggregator.ManagerConfig{MaxSessions: maxSessions, IdleTimeout: time.Hour, ReapInterval: time.Hour},
		aggregator.Config{RotationEnabled: true, RotationInterval: time.Hour, StaleAfter: time.Minute},
		deps,
	)

	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	managerDone := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(hubDone)
	}()
	go func() {
		_ = sessions.Serve(ctx)
		close(managerDone)
	}()

	handler := NewHandler(sessions, deps.Upstream, hub, cfg)
	server := httptest.NewServer(NewRouter(handler, ChiMiddlewareConfigFromSecurity(cfg.Security)).SetupChi())

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-managerDone
		<-hubDone
	})
	return &testAPI{server: server, sessions: sessions, hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

// createSession creates a session and returns its ID.
func (a *testAPI) createSession(t *testing.T) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/v1/sessions", "")
	if status != http.StatusCreated {
		t.Fatalf("create session: status %d, error %+v", status, env.Error)
	}
	var snap models.Snapshot
	decode(t, env, &snap)
	if snap.SessionID == "" {
		t.Fatal("empty session id")
	}
	return snap.SessionID
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectError(t *testing.T, gotStatus int, env envelope, wantStatus int, wantCode string) {
	t.Helper()
	if gotStatus != wantStatus {
		t.Errorf("status = %d, want %d (error %+v)", gotStatus, wantStatus, env.Error)
	}
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got status %q", env.Status)
	}
	if env.Error.Code != wantCode {
		t.Errorf("code = %q, want %q", env.Error.Code, wantCode)
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}
