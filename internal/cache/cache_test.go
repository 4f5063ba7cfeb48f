// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string]("test", ttl)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCacheGetSet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set("SG98", "13.15,80.26")
	v, ok := c.Get("SG98")
	if !ok || v != "13.15,80.26" {
		t.Errorf("Get = %q,%v", v, ok)
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit 1 miss", stats)
	}
	if rate := c.HitRate(); rate != 50 {
		t.Errorf("HitRate = %v, want 50", rate)
	}
}

func TestCacheExpiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.Set("a", "1")
	c.SetWithTTL("b", "2", time.Hour)

	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Error("entry a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("entry b should still be valid")
	}
	if got := c.GetStats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
}

func TestCacheCleanup(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}
	clock.Advance(time.Hour)
	c.Set("fresh", "v")

	c.cleanup()

	if got := c.Len(); got != 1 {
		t.Errorf("Len after cleanup = %d, want 1", got)
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, "v")
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 5 {
		t.Errorf("Len = %d, want 5", c.Len())
	}
}

func TestCacheCloseIdempotent(t *testing.T) {
	c := New[int]("close", time.Minute)
	c.Close()
	c.Close()
	c.Set("x", 1)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Error("cache should remain usable after Close")
	}
}
