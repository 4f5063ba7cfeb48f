// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package models defines the data structures shared by AirPulse packages.

Domain types:

  - DeviceGroup: group membership and the streaming topic template
  - LiveDeviceState: the last accepted reading of one device
  - AggregateSnapshot: per-field cross-device means with contributor counts
  - FocusState: which device the dashboard highlights and why
  - ScopeStatus: lifecycle of the current group scope (idle, loading, live, no_data, error)
  - HistorySeries: time-ordered readings for a history window

API types:

  - APIResponse, APIError, Metadata: the JSON envelope used by every endpoint

Optional telemetry fields are pointers. A nil pointer means the device did
not report the value; it is never replaced by zero.
*/
package models
