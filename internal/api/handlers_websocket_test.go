// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	ws "github.com/tomtom215/airpulse/internal/websocket"
)

func dialSession(t *testing.T, api *testAPI, sessionID, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/api/v1/sessions/" + sessionID + "/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func TestSessionWebSocket_PushesSessionEvents(t *testing.T) {
	api := newTestAPI(t, 10)
	id := api.createSession(t)

	conn, _, err := dialSession(t, api, id, testOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	seen := make(map[string]bool)
	read := func() ws.Message {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.SessionID != id {
			t.Errorf("message for session %q on %q", msg.SessionID, id)
		}
		seen[msg.Type] = true
		return msg
	}

	// Current state is sent on connect.
	for i := 0; i < 3; i++ {
		read()
	}
	for _, typ := range []string{ws.MessageTypeFocus, ws.MessageTypeAggregate, ws.MessageTypeStatus} {
		if !seen[typ] {
			t.Errorf("initial %s message missing", typ)
		}
	}

	if status, env := api.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/group", `{"group_id":"mock"}`); status != http.StatusOK {
		t.Fatalf("select group: %d %+v", status, env.Error)
	}

	for i := 0; i < 50 && !seen[ws.MessageTypeDeviceUpdate]; i++ {
		read()
	}
	if !seen[ws.MessageTypeDeviceUpdate] {
		t.Error("no device_update received")
	}
}

func TestSessionWebSocket_InitialStateOnlyToNewClient(t *testing.T) {
	api := newTestAPI(t, 10)
	id := api.createSession(t)

	readInitial := func(conn *websocket.Conn) {
		t.Helper()
		for _, want := range []string{ws.MessageTypeFocus, ws.MessageTypeAggregate, ws.MessageTypeStatus} {
			_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("read: %v", err)
			}
			if msg.Type != want || msg.SessionID != id {
				t.Errorf("got %s for %q, want %s for %q", msg.Type, msg.SessionID, want, id)
			}
		}
	}

	first, _, err := dialSession(t, api, id, testOrigin)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	readInitial(first)
	eventually(t, func() bool { return api.hub.SessionClientCount(id) == 1 }, "first client registered")

	second, _, err := dialSession(t, api, id, testOrigin)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	readInitial(second)
	eventually(t, func() bool { return api.hub.SessionClientCount(id) == 2 }, "second client registered")

	// The idle session emits nothing else, so the first client must stay quiet.
	_ = first.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg ws.Message
	if err := first.ReadJSON(&msg); err == nil {
		t.Errorf("existing client received %s after a second client connected", msg.Type)
	}
}

func TestSessionWebSocket_Rejections(t *testing.T) {
	api := newTestAPI(t, 10)
	id := api.createSession(t)

	tests := []struct {
		name       string
		session    string
		origin     string
		wantStatus int
	}{
		{"unknown session", "missing", testOrigin, http.StatusNotFound},
		{"missing origin", id, "", http.StatusForbidden},
		{"foreign origin", id, "http://evil.test", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dialSession(t, api, tt.session, tt.origin)
			if err == nil {
				t.Fatal("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tt.wantStatus {
				t.Errorf("response = %v, want status %d", resp, tt.wantStatus)
			}
		})
	}
}

func TestSessionWebSocket_ClosedOnDelete(t *testing.T) {
	api := newTestAPI(t, 10)
	id := api.createSession(t)

	conn, _, err := dialSession(t, api, id, testOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	eventually(t, func() bool { return api.hub.SessionClientCount(id) == 1 }, "client registered")

	if status, _ := api.do(t, http.MethodDelete, "/api/v1/sessions/"+id, ""); status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("err = %v, want normal close", err)
			}
			return
		}
	}
}
