// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// MockOrigin is the centre of the synthetic device field (Gurugram).
var MockOrigin = struct{ Lat, Lon float64 }{28.4595, 77.0266}

// MockStreamer produces synthetic frames for demo mode. Values follow a
// bounded random walk seeded from the device ID.
type MockStreamer struct {
	interval time.Duration
}

// NewMockStreamer emits one frame per device every interval.
func NewMockStreamer(interval time.Duration) *MockStreamer {
	return &MockStreamer{interval: interval}
}

// Open starts a synthetic stream. It never fails unless ctx is done.
func (m *MockStreamer) Open(ctx context.Context, deviceID, _ string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(deviceID))
	seed := h.Sum64()

	rng := rand.New(rand.NewPCG(seed, uint64(time.Now().UnixNano())))
	offset := float64(seed%1000) / 1000
	return &mockConn{
		ticker: time.NewTicker(m.interval),
		stop:   make(chan struct{}),
		rng:    rng,
		lat:    MockOrigin.Lat + (offset-0.5)*0.1,
		lon:    MockOrigin.Lon + (0.5-offset)*0.1,
		pm25:   20 + offset*40,
		temp:   28 + offset*6,
		rh:     40 + offset*30,
	}, nil
}

type mockConn struct {
	ticker    *time.Ticker
	stop      chan struct{}
	closeOnce sync.Once

	mu             sync.Mutex
	rng            *rand.Rand
	lat, lon       float64
	pm25, temp, rh float64
}

func (c *mockConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.stop:
		return nil, ErrClosed
	case <-c.ticker.C:
	}
	return c.next()
}

func (c *mockConn) Close() error {
	c.closeOnce.Do(func() {
		c.ticker.Stop()
		close(c.stop)
	})
	return nil
}

func (c *mockConn) next() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pm25 = walk(c.rng, c.pm25, 4, 2, 250)
	c.temp = walk(c.rng, c.temp, 0.3, 15, 45)
	c.rh = walk(c.rng, c.rh, 1.5, 10, 95)
	pm10 := c.pm25 * (1.4 + c.rng.Float64()*0.4)
	pm1 := c.pm25 * (0.6 + c.rng.Float64()*0.2)

	frame := map[string]any{
		"data": []any{map[string]any{
			"value": map[string]any{
				"sPM1":  round(pm1),
				"sPM2":  round(c.pm25),
				"sPM10": round(pm10),
				"temp":  round(c.temp),
				"rh":    round(c.rh),
				"lat":   c.lat,
				"lon":   c.lon,
			},
			"srvtime": time.Now().UnixMilli(),
		}},
	}
	return json.Marshal(frame)
}

func walk(rng *rand.Rand, v, step, lo, hi float64) float64 {
	v += (rng.Float64()*2 - 1) * step
	return math.Min(hi, math.Max(lo, v))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
