// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

import (
	"time"
)

// FieldAggregate is the cross-device mean of one field. Mean is nil (JSON
// null) when no device contributed a valid value.
type FieldAggregate struct {
	Mean         *float64 `json:"mean"`
	Contributors int      `json:"contributors"`
}

// Available reports whether at least one device contributed.
func (f FieldAggregate) Available() bool {
	return f.Mean != nil && f.Contributors > 0
}

// AggregateSnapshot is derived from the live-state map on demand.
type AggregateSnapshot struct {
	Fields      map[Field]FieldAggregate `json:"fields"`
	DeviceCount int                      `json:"device_count"`
	PM25Band    PMBand                   `json:"pm25_band,omitempty"`
	ComputedAt  time.Time                `json:"computed_at"`
}

// Mean returns the mean of f and whether it is available.
func (a *AggregateSnapshot) Mean(f Field) (float64, bool) {
	fa, ok := a.Fields[f]
	if !ok || !fa.Available() {
		return 0, false
	}
	return *fa.Mean, true
}
