// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

// Package devicestore caches registered (static) device positions so that
// reselecting a group does not re-query the device service for every member.
//
// Backends:
//   - memory: process-local TTL cache, lost on restart
//   - badger: BadgerDB on disk, entries expire through Badger's native TTL
package devicestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/models"
)

// ErrNotFound is returned when no unexpired position is stored.
var ErrNotFound = errors.New("device position not stored")

// Store persists static device positions.
type Store interface {
	Get(ctx context.Context, deviceID string) (*models.Position, error)
	Put(ctx context.Context, deviceID string, pos models.Position) error
	Delete(ctx context.Context, deviceID string) error
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(cfg *config.DeviceStoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(cfg.TTL), nil
	case "badger":
		return OpenBadgerStore(cfg.Path, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown device store backend %q", cfg.Backend)
	}
}

func key(deviceID string) []byte {
	return []byte(keyPrefix + deviceID)
}

const keyPrefix = "device_position:"
