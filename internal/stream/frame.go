// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/airpulse/internal/models"
)

// ErrMalformedFrame is returned for frames that cannot become a live state.
var ErrMalformedFrame = errors.New("malformed frame")

// srvtime values below this are seconds, at or above are milliseconds.
const millisecondThreshold = 1e11

type wireFrame struct {
	Data []wireEntry `json:"data"`
}

type wireEntry struct {
	Value   json.RawMessage `json:"value"`
	SrvTime json.RawMessage `json:"srvtime"`
}

// optionalFields maps upstream value keys to reading fields.
var optionalFields = []struct {
	key string
	set func(r *models.Reading, v float64)
}{
	{"sPM1", func(r *models.Reading, v float64) { r.PM1 = &v }},
	{"sPM10", func(r *models.Reading, v float64) { r.PM10 = &v }},
	{"temp", func(r *models.Reading, v float64) { r.Temperature = &v }},
	{"rh", func(r *models.Reading, v float64) { r.Humidity = &v }},
	{"nh3_ppm", func(r *models.Reading, v float64) { r.NH3 = &v }},
	{"co_ppb", func(r *models.Reading, v float64) { r.CO = &v }},
	{"so2_ppb", func(r *models.Reading, v float64) { r.SO2 = &v }},
	{"no2_ppb", func(r *models.Reading, v float64) { r.NO2 = &v }},
	{"o3_ppb_compensated", func(r *models.Reading, v float64) { r.O3 = &v }},
	{"k30Co2", func(r *models.Reading, v float64) { r.CO2 = &v }},
}

// ParseFrame decodes a raw stream frame for deviceID. Only the first entry
// of data is used. Optional values that are missing or not numeric are left
// unset; ReceivedAt is left zero for the caller to stamp.
func ParseFrame(deviceID string, raw []byte) (models.LiveDeviceState, error) {
	var state models.LiveDeviceState

	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return state, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(frame.Data) == 0 {
		return state, fmt.Errorf("%w: empty data", ErrMalformedFrame)
	}
	entry := frame.Data[0]

	var value map[string]json.RawMessage
	if len(entry.Value) == 0 {
		return state, fmt.Errorf("%w: value missing", ErrMalformedFrame)
	}
	if err := json.Unmarshal(entry.Value, &value); err != nil || value == nil {
		return state, fmt.Errorf("%w: value is not an object", ErrMalformedFrame)
	}

	pm25, ok := number(value["sPM2"])
	if !ok {
		return state, fmt.Errorf("%w: sPM2 missing or not numeric", ErrMalformedFrame)
	}
	srv, ok := number(entry.SrvTime)
	if !ok || srv <= 0 {
		return state, fmt.Errorf("%w: srvtime missing or not numeric", ErrMalformedFrame)
	}

	state.DeviceID = deviceID
	state.PM25 = pm25
	state.ServerTime = serverTime(srv)
	for _, f := range optionalFields {
		if v, ok := number(value[f.key]); ok {
			f.set(&state.Reading, v)
		}
	}

	lat, latOK := number(value["lat"])
	lon, lonOK := number(value["lon"])
	if !lonOK {
		lon, lonOK = number(value["long"])
	}
	if latOK && lonOK {
		p := &models.Position{Latitude: lat, Longitude: lon, Source: models.PositionFromStream}
		if p.Usable() {
			state.Position = p
		}
	}

	return state, nil
}

// number accepts a JSON number or a string holding one. Non-finite values
// are rejected.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		v = f
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func serverTime(v float64) time.Time {
	if v < millisecondThreshold {
		return time.Unix(0, int64(v*float64(time.Second))).UTC()
	}
	return time.UnixMilli(int64(v)).UTC()
}
