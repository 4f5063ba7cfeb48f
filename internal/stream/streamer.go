// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"context"
	"errors"
)

// ErrClosed is returned by ReadMessage after Close.
var ErrClosed = errors.New("stream closed")

// Conn is one open device stream.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the stream ends.
	ReadMessage() ([]byte, error)
	// Close ends the stream and unblocks a pending ReadMessage.
	Close() error
}

// Streamer opens device streams.
type Streamer interface {
	Open(ctx context.Context, deviceID, topic string) (Conn, error)
}

// TokenProvider supplies the bearer token for stream handshakes. An empty
// token means no Authorization header is sent.
type TokenProvider interface {
	Token() (string, error)
}
