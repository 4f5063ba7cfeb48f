// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

import (
	"time"
)

// APIResponse is the envelope written by every HTTP endpoint.
//
// Status is "success" (see Data) or "error" (see Error).
//
//	{
//	  "status": "success",
//	  "data": {"fields": {"pm25": {"mean": 20, "contributors": 3}}},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 2}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and cache information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes used by the API:
//   - VALIDATION_ERROR: malformed body or parameters
//   - SESSION_NOT_FOUND: unknown or expired dashboard session
//   - DEVICE_NOT_FOUND: device is not a member of the current group
//   - DEVICE_NOT_LIVE: pin requested for a device without live data
//   - NO_GROUP: operation needs a resolved group
//   - UPSTREAM_ERROR: group, device or history service failed
//   - SERVICE_UNAVAILABLE: circuit open or session limit reached
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
