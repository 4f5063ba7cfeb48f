// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

import (
	"time"
)

// DeviceGroup is a named set of devices sharing one streaming topic template.
// The template contains exactly one '+' which stands in for the device ID.
type DeviceGroup struct {
	ID            string   `json:"id"`
	Name          string   `json:"name,omitempty"`
	DeviceIDs     []string `json:"device_ids"`
	TopicTemplate string   `json:"topic_template"`
}

// HasDevice reports whether id is a member of the group.
func (g *DeviceGroup) HasDevice(id string) bool {
	for _, d := range g.DeviceIDs {
		if d == id {
			return true
		}
	}
	return false
}

// GroupSummary is one entry of the group listing.
type GroupSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	DeviceCount int    `json:"device_count,omitempty"`
}

// PositionSource records where a device position came from.
type PositionSource string

const (
	PositionFromStream PositionSource = "stream"
	PositionFromStatic PositionSource = "static"
)

// Position is a WGS84 coordinate.
type Position struct {
	Latitude  float64        `json:"lat"`
	Longitude float64        `json:"lon"`
	Source    PositionSource `json:"source,omitempty"`
}

// Usable reports whether the position carries real coordinates. Devices
// without a GPS fix report 0,0.
func (p *Position) Usable() bool {
	return p != nil && (p.Latitude != 0 || p.Longitude != 0)
}

// Reading holds the telemetry values of one frame. PM25 is always present;
// every other field is nil when the device did not report it.
type Reading struct {
	PM1         *float64 `json:"pm1,omitempty"`
	PM25        float64  `json:"pm25"`
	PM10        *float64 `json:"pm10,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	NH3         *float64 `json:"nh3_ppm,omitempty"`
	CO          *float64 `json:"co_ppb,omitempty"`
	SO2         *float64 `json:"so2_ppb,omitempty"`
	NO2         *float64 `json:"no2_ppb,omitempty"`
	O3          *float64 `json:"o3_ppb,omitempty"`
	CO2         *float64 `json:"co2_ppm,omitempty"`
}

// Value returns the value of field f and whether it was reported.
func (r *Reading) Value(f Field) (float64, bool) {
	var p *float64
	switch f {
	case FieldPM25:
		return r.PM25, true
	case FieldPM1:
		p = r.PM1
	case FieldPM10:
		p = r.PM10
	case FieldTemperature:
		p = r.Temperature
	case FieldHumidity:
		p = r.Humidity
	case FieldNH3:
		p = r.NH3
	case FieldCO:
		p = r.CO
	case FieldSO2:
		p = r.SO2
	case FieldNO2:
		p = r.NO2
	case FieldO3:
		p = r.O3
	case FieldCO2:
		p = r.CO2
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// LiveDeviceState is the last accepted frame of a device. Each accepted
// frame replaces the whole record.
type LiveDeviceState struct {
	DeviceID string    `json:"device_id"`
	Position *Position `json:"position,omitempty"`
	Reading
	// ServerTime is the upstream srvtime of the frame.
	ServerTime time.Time `json:"server_time"`
	// ReceivedAt is the local arrival time; staleness is measured from it.
	ReceivedAt time.Time `json:"received_at"`
}

// DeviceView is a live device as exposed to dashboard clients.
type DeviceView struct {
	LiveDeviceState
	Available bool   `json:"available"`
	PMBand    PMBand `json:"pm_band"`
}
