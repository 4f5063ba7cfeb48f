// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

import (
	"time"
)

// ScopeState is the lifecycle state of a session's group scope.
type ScopeState string

const (
	// ScopeIdle: no group has been resolved yet.
	ScopeIdle ScopeState = "idle"
	// ScopeLoading: devices are selected but none has reported yet.
	ScopeLoading ScopeState = "loading"
	// ScopeLive: at least one selected device has fresh data.
	ScopeLive ScopeState = "live"
	// ScopeNoData: nothing fresh arrived within the no-data timeout.
	ScopeNoData ScopeState = "no_data"
	// ScopeError: the last group resolution failed.
	ScopeError ScopeState = "error"
)

// ScopeStatus describes the current scope of an aggregator.
type ScopeStatus struct {
	State         ScopeState `json:"state"`
	GroupID       string     `json:"group_id,omitempty"`
	FailedGroupID string     `json:"failed_group_id,omitempty"`
	Error         string     `json:"error,omitempty"`
	SelectedCount int        `json:"selected_count"`
	LiveCount     int        `json:"live_count"`
	StaleCount    int        `json:"stale_count"`
	Since         time.Time  `json:"since"`
}

// Snapshot bundles every derived view of a session.
type Snapshot struct {
	SessionID string                `json:"session_id"`
	Status    ScopeStatus           `json:"status"`
	Group     *DeviceGroup          `json:"group,omitempty"`
	Selected  []string              `json:"selected"`
	Devices   map[string]DeviceView `json:"devices"`
	Focus     FocusState            `json:"focus"`
	Aggregate AggregateSnapshot     `json:"aggregate"`
}
