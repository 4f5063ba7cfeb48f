// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for unknown history window codes.
var ErrInvalidWindow = errors.New("invalid history window")

// HistoryWindow is a relative time range understood by the history service.
type HistoryWindow string

const (
	Window5M  HistoryWindow = "5M"
	Window15M HistoryWindow = "15M"
	Window3H  HistoryWindow = "3H"
	Window5H  HistoryWindow = "5H"
	Window1D  HistoryWindow = "1D"
)

var windowDurations = map[HistoryWindow]time.Duration{
	Window5M:  5 * time.Minute,
	Window15M: 15 * time.Minute,
	Window3H:  3 * time.Hour,
	Window5H:  5 * time.Hour,
	Window1D:  24 * time.Hour,
}

// ParseHistoryWindow validates a window code.
func ParseHistoryWindow(s string) (HistoryWindow, error) {
	w := HistoryWindow(s)
	if _, ok := windowDurations[w]; !ok {
		return "", fmt.Errorf("%w: %q (want 5M, 15M, 3H, 5H or 1D)", ErrInvalidWindow, s)
	}
	return w, nil
}

// Duration returns the length of the window, or 0 for an unknown code.
func (w HistoryWindow) Duration() time.Duration {
	return windowDurations[w]
}

// HistoryPoint is one historical reading. Only rows with all four values
// present are kept.
type HistoryPoint struct {
	Time        time.Time `json:"time"`
	PM25        float64   `json:"pm25"`
	PM10        float64   `json:"pm10"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// HistorySeries is a time-ordered series for one device and window.
type HistorySeries struct {
	DeviceID string         `json:"device_id"`
	Window   HistoryWindow  `json:"window"`
	Points   []HistoryPoint `json:"points"`
}
