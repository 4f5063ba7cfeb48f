// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/metrics"
	"github.com/tomtom215/airpulse/internal/models"
)

const breakerName = "upstream-api"

// CircuitBreakerClient wraps a Client with a circuit breaker.
//
// The breaker uses real time for its interval and timeout. Tests exercise
// the trip condition through the wrapped client rather than waiting for
// recovery.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps client. Settings:
//   - 3 requests allowed in half-open state
//   - counts reset every minute while closed
//   - 30s open period before probing again
//   - trips at >= 60% failures with at least 10 requests
func NewCircuitBreakerClient(client Client) *CircuitBreakerClient {
	return newCircuitBreakerClient(client, 30*time.Second)
}

func newCircuitBreakerClient(client Client, openTimeout time.Duration) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("opening upstream circuit")
				return true
			}
			return false
		},
		// Missing groups and devices are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: breakerName}
}

// State returns the breaker state as closed, half-open or open.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("upstream request rejected by circuit breaker")
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(cbc.cb.Counts().ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ResolveGroup implements Client.
func (cbc *CircuitBreakerClient) ResolveGroup(ctx context.Context, groupID string) (*models.DeviceGroup, error) {
	return castResult[models.DeviceGroup](cbc.execute(func() (interface{}, error) {
		return cbc.client.ResolveGroup(ctx, groupID)
	}))
}

// ListGroups implements Client.
func (cbc *CircuitBreakerClient) ListGroups(ctx context.Context) ([]models.GroupSummary, error) {
	res, err := castResult[[]models.GroupSummary](cbc.execute(func() (interface{}, error) {
		groups, err := cbc.client.ListGroups(ctx)
		return &groups, err
	}))
	if err != nil {
		return nil, err
	}
	return *res, nil
}

// DeviceLocation implements Client.
func (cbc *CircuitBreakerClient) DeviceLocation(ctx context.Context, deviceID string) (*models.Position, error) {
	return castResult[models.Position](cbc.execute(func() (interface{}, error) {
		return cbc.client.DeviceLocation(ctx, deviceID)
	}))
}

// History implements Client.
func (cbc *CircuitBreakerClient) History(ctx context.Context, deviceID string, window models.HistoryWindow) (*models.HistorySeries, error) {
	return castResult[models.HistorySeries](cbc.execute(func() (interface{}, error) {
		return cbc.client.History(ctx, deviceID, window)
	}))
}

// Ping implements Client.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}
