// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/airpulse/internal/models"
)

// ComputeAggregate returns the per-field mean across states. Only values
// that are present, finite and inside models.PhysicalRanges contribute; a
// field without contributors has a nil mean. Callers pass only the devices
// that should count; the aggregator leaves stale devices out.
func ComputeAggregate(states map[string]models.LiveDeviceState, computedAt time.Time) models.AggregateSnapshot {
	// Sum in ID order so the result does not depend on map iteration.
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := models.AggregateSnapshot{
		Fields:      make(map[models.Field]models.FieldAggregate, len(models.AllFields)),
		DeviceCount: len(states),
		ComputedAt:  computedAt,
	}

	for _, field := range models.AllFields {
		bounds := models.PhysicalRanges[field]
		var sum float64
		var n int
		for _, id := range ids {
			st := states[id]
			v, ok := st.Value(field)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) || !bounds.Contains(v) {
				continue
			}
			sum += v
			n++
		}
		fa := models.FieldAggregate{Contributors: n}
		if n > 0 {
			mean := sum / float64(n)
			fa.Mean = &mean
		}
		snap.Fields[field] = fa
	}

	if pm25, ok := snap.Mean(models.FieldPM25); ok {
		snap.PM25Band = models.ClassifyPM25(pm25)
	}
	return snap
}
