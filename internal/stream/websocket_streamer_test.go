// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/airpulse/internal/config"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

// mockStreamServer upgrades every request and hands the server side of the
// connection to the test together with the request.
type mockStreamServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	requests chan *http.Request
}

func newMockStreamServer(t *testing.T) *mockStreamServer {
	t.Helper()
	m := &mockStreamServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:    make(chan *websocket.Conn, 4),
		requests: make(chan *http.Request, 4),
	}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		conn, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.requests <- r
		m.conns <- conn
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockStreamServer) baseURL() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http") + "/stream"
}

func testStreamConfig(base string) *config.StreamConfig {
	return &config.StreamConfig{
		BaseURL:          base,
		HandshakeTimeout: 2 * time.Second,
		ReadTimeout:      5 * time.Second,
		PingInterval:     time.Second,
		MaxMessageSize:   64 * 1024,
		DialRate:         100,
		DialBurst:        10,
	}
}

func TestWebSocketStreamer_OpenAndRead(t *testing.T) {
	srv := newMockStreamServer(t)
	s := NewWebSocketStreamer(testStreamConfig(srv.baseURL()), staticToken("secret"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := s.Open(ctx, "SG98", "prod/gur/SG98/sen")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	req := <-srv.requests
	if req.URL.Path != "/stream/prod/gur/SG98/sen" {
		t.Errorf("path = %q", req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}

	server := <-srv.conns
	defer server.Close()
	frame := `{"data":[{"value":{"sPM2":11},"srvtime":1760000000000}]}`
	if err := server.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(data) != frame {
		t.Errorf("ReadMessage() = %s", data)
	}
}

func TestWebSocketStreamer_NoTokenNoHeader(t *testing.T) {
	srv := newMockStreamServer(t)
	s := NewWebSocketStreamer(testStreamConfig(srv.baseURL()), staticToken(""))

	conn, err := s.Open(context.Background(), "S26", "prod/gur/S26/sen")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if got := (<-srv.requests).Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestWebSocketStreamer_CloseUnblocksRead(t *testing.T) {
	srv := newMockStreamServer(t)
	s := NewWebSocketStreamer(testStreamConfig(srv.baseURL()), nil)

	conn, err := s.Open(context.Background(), "SG98", "prod/gur/SG98/sen")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	server := <-srv.conns
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := conn.Close(); err != nil {
		t.Logf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("ReadMessage() error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadMessage did not return after Close")
	}

	// A second Close is a no-op.
	_ = conn.Close()
}

func TestWebSocketStreamer_ServerClose(t *testing.T) {
	srv := newMockStreamServer(t)
	s := NewWebSocketStreamer(testStreamConfig(srv.baseURL()), nil)

	conn, err := s.Open(context.Background(), "SG98", "prod/gur/SG98/sen")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	server := <-srv.conns
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = server.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	server.Close()

	if _, err := conn.ReadMessage(); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadMessage() error = %v, want ErrClosed", err)
	}
}

func TestWebSocketStreamer_DialFailure(t *testing.T) {
	srv := newMockStreamServer(t)
	s := NewWebSocketStreamer(testStreamConfig(srv.baseURL()), nil)

	_, err := s.Open(context.Background(), "SG98", "missing/SG98")
	if err == nil {
		t.Fatal("Open() should fail on 404")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error = %v, want status 404", err)
	}
}

func TestWebSocketStreamer_CanceledContext(t *testing.T) {
	cfg := testStreamConfig("ws://127.0.0.1:1/stream")
	cfg.DialRate = 0.001
	cfg.DialBurst = 1
	s := NewWebSocketStreamer(cfg, nil)
	// Drain the single burst token.
	s.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Open(ctx, "SG98", "prod/gur/SG98/sen"); err == nil {
		t.Fatal("Open() should fail with canceled context")
	}
}

func TestWebSocketStreamer_URL(t *testing.T) {
	s := NewWebSocketStreamer(testStreamConfig("wss://bw06.kaatru.org/stream/"), nil)
	got, err := s.URL("prod/gur/SG98/sen")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if got != "wss://bw06.kaatru.org/stream/prod/gur/SG98/sen" {
		t.Errorf("URL() = %q", got)
	}
}
