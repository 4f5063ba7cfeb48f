// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"context"
	"time"

	"github.com/tomtom215/airpulse/internal/cache"
	"github.com/tomtom215/airpulse/internal/models"
)

const groupListKey = "all"

// CachedClient caches history series and the group listing for a short TTL.
// Dashboards poll the same focus history from several tabs; live calls
// (group resolution, device positions, ping) pass straight through.
type CachedClient struct {
	Client
	history *cache.Cache[*models.HistorySeries]
	groups  *cache.Cache[[]models.GroupSummary]
}

// NewCachedClient wraps client with a TTL cache.
func NewCachedClient(client Client, ttl time.Duration) *CachedClient {
	return &CachedClient{
		Client:  client,
		history: cache.New[*models.HistorySeries]("history", ttl),
		groups:  cache.New[[]models.GroupSummary]("groups", ttl),
	}
}

// History implements Client.
func (c *CachedClient) History(ctx context.Context, deviceID string, window models.HistoryWindow) (*models.HistorySeries, error) {
	key := deviceID + "|" + string(window)
	if s, ok := c.history.Get(key); ok {
		return s, nil
	}
	s, err := c.Client.History(ctx, deviceID, window)
	if err != nil {
		return nil, err
	}
	c.history.Set(key, s)
	return s, nil
}

// ListGroups implements Client.
func (c *CachedClient) ListGroups(ctx context.Context) ([]models.GroupSummary, error) {
	if g, ok := c.groups.Get(groupListKey); ok {
		return g, nil
	}
	g, err := c.Client.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	c.groups.Set(groupListKey, g)
	return g, nil
}

// Close stops the cache janitors and closes the wrapped client.
func (c *CachedClient) Close() {
	c.history.Close()
	c.groups.Close()
	Close(c.Client)
}
