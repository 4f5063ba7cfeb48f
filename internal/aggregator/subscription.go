// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/airpulse/internal/metrics"
	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/stream"
)

// frameEvent carries a parsed frame from a subscription to the loop.
type frameEvent struct {
	sub   *subscription
	state models.LiveDeviceState
}

// reconnectPolicy controls redialing after a dropped or failed stream.
type reconnectPolicy struct {
	enabled bool
	initial time.Duration
	max     time.Duration
}

// subscription binds one device to one streaming connection. Its goroutine
// parses frames and hands them to the aggregator loop; it never touches
// aggregator state.
type subscription struct {
	deviceID string
	topic    string
	streamer stream.Streamer
	frames   chan<- frameEvent
	policy   reconnectPolicy
	now      func() time.Time
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   stream.Conn
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSubscription(
	deviceID, topic string,
	streamer stream.Streamer,
	frames chan<- frameEvent,
	policy reconnectPolicy,
	now func() time.Time,
	log zerolog.Logger,
) *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscription{
		deviceID: deviceID,
		topic:    topic,
		streamer: streamer,
		frames:   frames,
		policy:   policy,
		now:      now,
		log:      log.With().Str("device_id", deviceID).Str("topic", topic).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *subscription) start() {
	s.wg.Add(1)
	go s.run()
}

// Close stops the subscription and returns after its goroutine has exited.
// No frame from this subscription is handed over after Close returns.
func (s *subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.closed = true
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
	s.wg.Wait()
}

func (s *subscription) run() {
	defer s.wg.Done()

	delay := s.policy.initial
	for {
		conn, err := s.streamer.Open(s.ctx, s.deviceID, s.topic)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			metrics.RecordSubscriptionEvent("dial_failed")
			s.log.Warn().Err(err).Msg("failed to open device stream")
		} else {
			if !s.attach(conn) {
				return
			}
			metrics.RecordSubscriptionEvent("opened")
			received := s.readLoop(conn)
			s.detach(conn)
			metrics.RecordSubscriptionEvent("closed")
			if s.ctx.Err() != nil {
				return
			}
			metrics.RecordSubscriptionEvent("dropped")
			if received {
				delay = s.policy.initial
			}
		}

		if !s.policy.enabled {
			// Without reconnect the device simply goes stale.
			return
		}
		s.log.Info().Dur("delay", delay).Msg("device stream lost, reconnecting")
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
		metrics.RecordSubscriptionEvent("reconnect")
		delay *= 2
		if delay > s.policy.max {
			delay = s.policy.max
		}
	}
}

// attach records conn as the live connection. It returns false, closing
// conn, when the subscription was closed while dialing.
func (s *subscription) attach(conn stream.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return false
	}
	s.conn = conn
	return true
}

func (s *subscription) detach(conn stream.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// readLoop forwards frames until the connection fails or the subscription
// is closed. It reports whether any frame was accepted.
func (s *subscription) readLoop(conn stream.Conn) bool {
	received := false
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.log.Info().Err(err).Msg("device stream dropped")
			}
			return received
		}

		state, err := stream.ParseFrame(s.deviceID, raw)
		if err != nil {
			metrics.RecordFrame("malformed")
			s.log.Debug().Err(err).Int("bytes", len(raw)).Msg("dropping malformed frame")
			continue
		}
		state.ReceivedAt = s.now()
		received = true

		select {
		case s.frames <- frameEvent{sub: s, state: state}:
		case <-s.ctx.Done():
			return received
		}
	}
}
