// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"sort"
	"sync"
)

// registry maps device IDs to their open subscription. Each aggregator owns
// exactly one; it is only touched from the aggregator loop.
type registry struct {
	subs map[string]*subscription
}

func newRegistry() *registry {
	return &registry{subs: make(map[string]*subscription)}
}

func (r *registry) has(deviceID string) bool {
	_, ok := r.subs[deviceID]
	return ok
}

// owns reports whether sub is the current subscription for deviceID.
func (r *registry) owns(deviceID string, sub *subscription) bool {
	cur, ok := r.subs[deviceID]
	return ok && cur == sub
}

func (r *registry) add(deviceID string, sub *subscription) {
	r.subs[deviceID] = sub
}

// remove closes and forgets the subscriptions of deviceIDs concurrently.
// It returns after every affected subscription goroutine has exited.
func (r *registry) remove(deviceIDs ...string) {
	var wg sync.WaitGroup
	for _, id := range deviceIDs {
		sub, ok := r.subs[id]
		if !ok {
			continue
		}
		delete(r.subs, id)
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			s.Close()
		}(sub)
	}
	wg.Wait()
}

// closeAll closes every subscription and empties the registry.
func (r *registry) closeAll() {
	r.remove(r.ids()...)
}

func (r *registry) len() int {
	return len(r.subs)
}

func (r *registry) ids() []string {
	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
