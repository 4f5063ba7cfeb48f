// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package upstream talks to the sensor network's REST services.

Three upstream services are consumed:

  - group service (upstream.base_url): group membership and topic template,
    the group listing and static device positions
  - history service (upstream.history_url): raw readings of one device over
    a coarse window (5M, 15M, 3H, 5H, 1D)
  - a health probe used by the readiness endpoint

Client is implemented by HTTPClient for production and MockClient for demo
deployments; NewClient picks one from upstream.mode. In production the HTTP
client is wrapped by CircuitBreakerClient when upstream.circuit_breaker is set.

Resilience:
  - HTTP 429 is retried with exponential backoff, honoring Retry-After
  - The bearer token is checked for expiry before every request
  - The circuit breaker opens at a 60% failure rate over at least 10 requests
*/
package upstream

import (
	"context"
	"errors"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/models"
)

var (
	// ErrNotFound is returned when the upstream has no such group or device.
	ErrNotFound = errors.New("not found upstream")
	// ErrTokenExpired is returned when the configured bearer token has expired.
	ErrTokenExpired = errors.New("upstream token expired")
	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("upstream circuit breaker open")
)

// Client is the set of upstream operations used by the aggregator and API.
// All methods are safe for concurrent use.
type Client interface {
	// ResolveGroup returns the members and topic template of a group. The
	// template is empty when the group service did not provide one.
	ResolveGroup(ctx context.Context, groupID string) (*models.DeviceGroup, error)
	ListGroups(ctx context.Context) ([]models.GroupSummary, error)
	// DeviceLocation returns the registered (static) position of a device.
	DeviceLocation(ctx context.Context, deviceID string) (*models.Position, error)
	History(ctx context.Context, deviceID string, window models.HistoryWindow) (*models.HistorySeries, error)
	Ping(ctx context.Context) error
}

// NewClient builds the client selected by cfg.Upstream.Mode.
func NewClient(cfg *config.Config, tokens *TokenSource) Client {
	if cfg.Upstream.IsMock() {
		return NewMockClient(cfg.History.MaxPoints)
	}
	var c Client = NewHTTPClient(&cfg.Upstream, cfg.History.MaxPoints, tokens)
	if cfg.Upstream.CircuitBreaker {
		c = NewCircuitBreakerClient(c)
	}
	if cfg.History.CacheTTL > 0 {
		c = NewCachedClient(c, cfg.History.CacheTTL)
	}
	return c
}

// Close releases background resources held by c, such as cache sweepers.
// Clients without any are left alone.
func Close(c Client) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}
