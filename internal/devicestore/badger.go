// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package devicestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/models"
)

const (
	gcInterval     = 10 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerStore keeps positions in BadgerDB with a per-entry TTL.
type BadgerStore struct {
	db      *badger.DB
	ttl     time.Duration
	ownsDB  bool
	stop    chan struct{}
	wg      sync.WaitGroup
	closeOnce sync.Once
}

// OpenBadgerStore opens (or creates) a database at path and starts the
// value log GC loop.
func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open device store at %s: %w", path, err)
	}
	s := NewBadgerStore(db, ttl)
	s.ownsDB = true
	s.wg.Add(1)
	go s.gcLoop()
	return s, nil
}

// NewBadgerStore uses an already open database. Close does not close db.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl, stop: make(chan struct{})}
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, deviceID string) (*models.Position, error) {
	var pos models.Position
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(deviceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, deviceID string, pos models.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(deviceID), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, deviceID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(deviceID))
	})
}

// Close stops the GC loop and closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if s.ownsDB {
			err = s.db.Close()
		}
	})
	return err
}

func (s *BadgerStore) gcLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("device store value log GC failed")
			}
		}
	}
}
