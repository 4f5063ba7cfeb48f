// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

// FocusReason explains why a device is in focus.
type FocusReason string

const (
	FocusNone     FocusReason = "none"
	FocusPinned   FocusReason = "pinned"
	FocusRotation FocusReason = "rotation"
	FocusFirst    FocusReason = "first"
)

// FocusState is the currently highlighted device.
type FocusState struct {
	DeviceID        string      `json:"device_id,omitempty"`
	Reason          FocusReason `json:"reason"`
	PinnedDeviceID  string      `json:"pinned_device_id,omitempty"`
	RotationEnabled bool        `json:"rotation_enabled"`
	RotationIndex   int         `json:"rotation_index"`
	LiveCount       int         `json:"live_count"`
}

// HasFocus reports whether a device is focused.
func (f FocusState) HasFocus() bool {
	return f.DeviceID != ""
}
