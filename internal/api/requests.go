// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package api

// Request bodies with go-playground/validator tags. The deviceid and window
// tags are registered by internal/validation.

// SelectGroupRequest is the body of PUT /sessions/{id}/group.
type SelectGroupRequest struct {
	GroupID string `json:"group_id" validate:"required,deviceid"`
}

// SetSelectionRequest is the body of PUT /sessions/{id}/selection. An empty
// list clears the selection.
type SetSelectionRequest struct {
	DeviceIDs []string `json:"device_ids" validate:"max=500,dive,deviceid"`
}

// PinRequest is the body of PUT /sessions/{id}/focus/pin.
type PinRequest struct {
	DeviceID string `json:"device_id" validate:"required,deviceid"`
}

// RotationRequest is the body of PUT /sessions/{id}/focus/rotation.
// IntervalSeconds of zero keeps the current interval.
type RotationRequest struct {
	Enabled         *bool `json:"enabled" validate:"required"`
	IntervalSeconds int   `json:"interval_seconds" validate:"omitempty,gte=1,lte=3600"`
}

// HistoryRequest holds the validated parameters of the history endpoints.
type HistoryRequest struct {
	DeviceID string `json:"device_id" validate:"required,deviceid"`
	Window   string `json:"window" validate:"required,window"`
}
