// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package devicestore

import (
	"context"
	"time"

	"github.com/tomtom215/airpulse/internal/cache"
	"github.com/tomtom215/airpulse/internal/models"
)

// MemoryStore keeps positions in a TTL cache.
type MemoryStore struct {
	positions *cache.Cache[models.Position]
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{positions: cache.New[models.Position]("device_position", ttl)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, deviceID string) (*models.Position, error) {
	p, ok := s.positions.Get(deviceID)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, deviceID string, pos models.Position) error {
	s.positions.Set(deviceID, pos)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, deviceID string) error {
	s.positions.Delete(deviceID)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.positions.Close()
	return nil
}
