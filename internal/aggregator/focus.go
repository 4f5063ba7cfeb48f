// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"github.com/tomtom215/airpulse/internal/models"
)

// focus arbitrates between the pinned device and rotation. It is owned by
// the aggregator loop.
type focus struct {
	pinned          string
	rotationEnabled bool
	index           int
}

func newFocus(rotationEnabled bool) *focus {
	return &focus{rotationEnabled: rotationEnabled}
}

// reset clears the pin and rewinds rotation. Used when a new scope starts.
func (f *focus) reset() {
	f.pinned = ""
	f.index = 0
}

// advance moves rotation one step over n live devices. It does nothing
// while a device is pinned or rotation is off.
func (f *focus) advance(n int) {
	if f.pinned != "" || !f.rotationEnabled || n == 0 {
		return
	}
	f.index = (f.index + 1) % n
}

// resolve derives the focus for the sorted live IDs. A pin on a device
// that is no longer live is dropped.
func (f *focus) resolve(live []string) models.FocusState {
	if f.pinned != "" && !contains(live, f.pinned) {
		f.pinned = ""
	}
	if f.index >= len(live) {
		f.index = 0
	}

	state := models.FocusState{
		Reason:          models.FocusNone,
		PinnedDeviceID:  f.pinned,
		RotationEnabled: f.rotationEnabled,
		RotationIndex:   f.index,
		LiveCount:       len(live),
	}
	switch {
	case f.pinned != "":
		state.DeviceID = f.pinned
		state.Reason = models.FocusPinned
	case len(live) == 0:
	case f.rotationEnabled:
		state.DeviceID = live[f.index]
		state.Reason = models.FocusRotation
	default:
		state.DeviceID = live[0]
		state.Reason = models.FocusFirst
	}
	return state
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
