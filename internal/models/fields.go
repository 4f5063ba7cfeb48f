// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package models

// Field names a telemetry quantity.
type Field string

const (
	FieldPM1         Field = "pm1"
	FieldPM25        Field = "pm25"
	FieldPM10        Field = "pm10"
	FieldTemperature Field = "temperature"
	FieldHumidity    Field = "humidity"
	FieldNH3         Field = "nh3_ppm"
	FieldCO          Field = "co_ppb"
	FieldSO2         Field = "so2_ppb"
	FieldNO2         Field = "no2_ppb"
	FieldO3          Field = "o3_ppb"
	FieldCO2         Field = "co2_ppm"
)

// AllFields lists every aggregated field in display order.
var AllFields = []Field{
	FieldPM1, FieldPM25, FieldPM10,
	FieldTemperature, FieldHumidity,
	FieldNH3, FieldCO, FieldSO2, FieldNO2, FieldO3, FieldCO2,
}

// ValueRange is an inclusive physical range.
type ValueRange struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the range.
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// PhysicalRanges bounds the values a working sensor can report. Values
// outside are treated as sensor faults.
var PhysicalRanges = map[Field]ValueRange{
	FieldPM1:         {0, 1000},
	FieldPM25:        {0, 1000},
	FieldPM10:        {0, 1000},
	FieldTemperature: {-40, 85},
	FieldHumidity:    {0, 100},
	FieldNH3:         {0, 1000},
	FieldCO:          {0, 100000},
	FieldSO2:         {0, 100000},
	FieldNO2:         {0, 100000},
	FieldO3:          {0, 100000},
	FieldCO2:         {0, 10000},
}

// PMBand is the air quality band of a PM2.5 concentration.
type PMBand string

const (
	PMBandGood     PMBand = "good"
	PMBandModerate PMBand = "moderate"
	PMBandPoor     PMBand = "poor"
	PMBandSevere   PMBand = "severe"
)

// ClassifyPM25 maps a PM2.5 concentration in µg/m³ to its band.
func ClassifyPM25(v float64) PMBand {
	switch {
	case v <= 30:
		return PMBandGood
	case v <= 60:
		return PMBandModerate
	case v <= 90:
		return PMBandPoor
	default:
		return PMBandSevere
	}
}
