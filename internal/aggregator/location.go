// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/airpulse/internal/devicestore"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/metrics"
	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/upstream"
)

// maxLocationLookups bounds concurrent upstream position lookups.
const maxLocationLookups = 4

// locator resolves static device positions, preferring the local device
// store over the upstream device endpoint.
type locator struct {
	store    devicestore.Store
	upstream upstream.Client
}

func (l locator) resolve(ctx context.Context, deviceID string) (*models.Position, error) {
	if l.store != nil {
		pos, err := l.store.Get(ctx, deviceID)
		switch {
		case err == nil:
			metrics.RecordDeviceStoreLookup("hit")
			p := *pos
			p.Source = models.PositionFromStatic
			return &p, nil
		case errors.Is(err, devicestore.ErrNotFound):
			metrics.RecordDeviceStoreLookup("miss")
		default:
			metrics.RecordDeviceStoreLookup("error")
			logging.Warn().Err(err).Str("device_id", deviceID).Msg("device store lookup failed")
		}
	}

	pos, err := l.upstream.DeviceLocation(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	p := *pos
	p.Source = models.PositionFromStatic

	if l.store != nil {
		if err := l.store.Put(ctx, deviceID, p); err != nil {
			logging.Warn().Err(err).Str("device_id", deviceID).Msg("failed to persist device position")
		}
	}
	return &p, nil
}

// resolveAll looks up every device. Devices without a known position are
// left out of the result.
func (l locator) resolveAll(ctx context.Context, deviceIDs []string) map[string]models.Position {
	out := make(map[string]models.Position, len(deviceIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxLocationLookups)

	for _, id := range deviceIDs {
		wg.Add(1)
		go func(deviceID string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			pos, err := l.resolve(ctx, deviceID)
			if err != nil {
				if !errors.Is(err, upstream.ErrNotFound) && ctx.Err() == nil {
					logging.Debug().Err(err).Str("device_id", deviceID).Msg("no static position")
				}
				return
			}
			mu.Lock()
			out[deviceID] = *pos
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return out
}
