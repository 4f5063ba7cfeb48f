// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/metrics"
)

const closeWriteTimeout = time.Second

// WebSocketStreamer opens device streams against the upstream stream gateway.
type WebSocketStreamer struct {
	baseURL        string
	tokens         TokenProvider
	dialer         *websocket.Dialer
	limiter        *rate.Limiter
	readTimeout    time.Duration
	pingInterval   time.Duration
	maxMessageSize int64
}

// NewWebSocketStreamer creates a streamer from cfg. tokens may be nil.
func NewWebSocketStreamer(cfg *config.StreamConfig, tokens TokenProvider) *WebSocketStreamer {
	return &WebSocketStreamer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  tokens,
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.DialRate), cfg.DialBurst),
		readTimeout:    cfg.ReadTimeout,
		pingInterval:   cfg.PingInterval,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// URL returns the stream URL for topic.
func (s *WebSocketStreamer) URL(topic string) (string, error) {
	return url.JoinPath(s.baseURL, topic)
}

// Open dials the stream for topic. It waits for the dial limiter, so a
// canceled ctx aborts both the wait and the handshake.
func (s *WebSocketStreamer) Open(ctx context.Context, deviceID, topic string) (Conn, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("dial limiter: %w", err)
	}

	target, err := s.URL(topic)
	if err != nil {
		return nil, fmt.Errorf("build stream url: %w", err)
	}

	header := http.Header{}
	if s.tokens != nil {
		token, terr := s.tokens.Token()
		if terr != nil {
			return nil, fmt.Errorf("stream token: %w", terr)
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	metrics.RecordUpstreamRequest("stream_dial", time.Since(start), err)
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("failed to close handshake response body")
		}
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s failed (status %d): %w", topic, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", topic, err)
	}

	c := &wsConn{
		conn:        conn,
		deviceID:    deviceID,
		readTimeout: s.readTimeout,
		stop:        make(chan struct{}),
	}
	conn.SetReadLimit(s.maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		logging.Debug().Err(err).Str("device_id", deviceID).Msg("failed to set read deadline")
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	})

	c.wg.Add(1)
	go c.pingLoop(s.pingInterval)

	logging.Debug().Str("device_id", deviceID).Str("url", target).Msg("stream connected")
	return c, nil
}

type wsConn struct {
	conn        *websocket.Conn
	deviceID    string
	readTimeout time.Duration

	stop      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// ReadMessage returns the next data frame. Any inbound message extends the
// read deadline.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		select {
		case <-c.stop:
			return nil, ErrClosed
		default:
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: closed by server", ErrClosed)
		}
		return nil, err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		logging.Debug().Err(err).Str("device_id", c.deviceID).Msg("failed to extend read deadline")
	}
	return data, nil
}

// Close sends a close frame, closes the socket and waits for the ping loop.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil &&
			!errors.Is(err, websocket.ErrCloseSent) {
			logging.Debug().Err(err).Str("device_id", c.deviceID).Msg("failed to send close frame")
		}
		c.closeErr = c.conn.Close()
		c.wg.Wait()
	})
	return c.closeErr
}

func (c *wsConn) pingLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeWriteTimeout)); err != nil {
				logging.Debug().Err(err).Str("device_id", c.deviceID).Msg("stream ping failed")
				return
			}
		}
	}
}
