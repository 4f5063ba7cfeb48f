// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/airpulse/internal/eventbus"
)

type fakeNATSServer struct {
	running   atomic.Bool
	shutdowns atomic.Int32
}

func newFakeNATSServer() *fakeNATSServer {
	f := &fakeNATSServer{}
	f.running.Store(true)
	return f
}

func (f *fakeNATSServer) IsRunning() bool { return f.running.Load() }

func (f *fakeNATSServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	f.running.Store(false)
	return nil
}

func TestNATSServerService_ShutsDownOnCancel(t *testing.T) {
	server := newFakeNATSServer()
	svc := NewNATSServerService(server, time.Second)
	if svc.String() != "nats-server" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	if server.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", server.shutdowns.Load())
	}
}

func TestNATSServerService_ReportsDeadServer(t *testing.T) {
	server := newFakeNATSServer()
	svc := NewNATSServerService(server, time.Second)
	svc.checkInterval = 10 * time.Millisecond

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(context.Background()) }()

	server.running.Store(false)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrNATSServerStopped) {
			t.Errorf("Serve() = %v, want ErrNATSServerStopped", err)
		}
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() = %v, want suture.ErrDoNotRestart", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not notice the stopped server")
	}
}

func TestNATSServerService_EmbeddedServer(t *testing.T) {
	server, err := eventbus.NewEmbeddedServer("127.0.0.1", -1, t.TempDir())
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	svc := NewNATSServerService(server, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	if !server.IsRunning() {
		t.Error("embedded server should be running")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Serve did not return")
	}
	if server.IsRunning() {
		t.Error("embedded server still running after shutdown")
	}
}
