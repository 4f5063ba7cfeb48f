// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/models"
)

func TestMockClient(t *testing.T) {
	m := NewMockClient(2000)
	ctx := context.Background()

	g, err := m.ResolveGroup(ctx, MockGroupID)
	if err != nil {
		t.Fatalf("ResolveGroup() error = %v", err)
	}
	if len(g.DeviceIDs) != 2 || g.DeviceIDs[0] != "SG98" || g.DeviceIDs[1] != "S26" {
		t.Errorf("DeviceIDs = %v", g.DeviceIDs)
	}
	if g.TopicTemplate != "prod/gur/+/sen" {
		t.Errorf("TopicTemplate = %q", g.TopicTemplate)
	}

	if _, err := m.ResolveGroup(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group error = %v", err)
	}

	groups, err := m.ListGroups(ctx)
	if err != nil || len(groups) != 1 || groups[0].DeviceCount != 2 {
		t.Errorf("ListGroups() = %+v, %v", groups, err)
	}

	p, err := m.DeviceLocation(ctx, "S26")
	if err != nil || !p.Usable() || p.Source != models.PositionFromStatic {
		t.Errorf("DeviceLocation() = %+v, %v", p, err)
	}
	if _, err := m.DeviceLocation(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown device error = %v", err)
	}

	if err := m.Ping(ctx); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestMockClient_History(t *testing.T) {
	m := NewMockClient(10)
	s, err := m.History(context.Background(), "SG98", models.Window1D)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(s.Points) != 10 {
		t.Fatalf("got %d points, want maxPoints 10", len(s.Points))
	}
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Time.After(s.Points[i-1].Time) {
			t.Fatalf("points not ordered at %d", i)
		}
	}

	if _, err := m.History(context.Background(), "SG98", "2W"); !errors.Is(err, models.ErrInvalidWindow) {
		t.Errorf("invalid window error = %v", err)
	}
}

func TestNewClient(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upstream.Mode = config.ModeMock
	if _, ok := NewClient(cfg, nil).(*MockClient); !ok {
		t.Error("mock mode should return *MockClient")
	}

	cfg.Upstream.Mode = config.ModeProduction
	cfg.Upstream.BaseURL = "https://example.invalid"
	cfg.Upstream.CircuitBreaker = true
	cfg.History.CacheTTL = 0
	if _, ok := NewClient(cfg, nil).(*CircuitBreakerClient); !ok {
		t.Error("production mode with breaker should return *CircuitBreakerClient")
	}

	cfg.Upstream.CircuitBreaker = false
	if _, ok := NewClient(cfg, nil).(*HTTPClient); !ok {
		t.Error("production mode without breaker should return *HTTPClient")
	}

	cfg.History.CacheTTL = time.Minute
	c := NewClient(cfg, nil)
	defer Close(c)
	if _, ok := c.(*CachedClient); !ok {
		t.Error("production mode with a cache TTL should return *CachedClient")
	}
}
