// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/airpulse/internal/models"
)

func TestParseFrame_Valid(t *testing.T) {
	raw := []byte(`{"data":[{"value":{"sPM2":12.5,"sPM10":"20.25","temp":31.2,"rh":48,
		"lat":28.45,"long":77.02,"nh3_ppm":1.5,"o3_ppb_compensated":"33","k30Co2":410},
		"srvtime":1760000000000}]}`)

	state, err := ParseFrame("SG98", raw)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if state.DeviceID != "SG98" {
		t.Errorf("DeviceID = %q", state.DeviceID)
	}
	if state.PM25 != 12.5 {
		t.Errorf("PM25 = %v, want 12.5", state.PM25)
	}
	if state.PM10 == nil || *state.PM10 != 20.25 {
		t.Errorf("PM10 = %v, want 20.25 from numeric string", state.PM10)
	}
	if state.Temperature == nil || *state.Temperature != 31.2 {
		t.Errorf("Temperature = %v", state.Temperature)
	}
	if state.O3 == nil || *state.O3 != 33 {
		t.Errorf("O3 = %v", state.O3)
	}
	if state.CO2 == nil || *state.CO2 != 410 {
		t.Errorf("CO2 = %v", state.CO2)
	}
	if state.PM1 != nil || state.CO != nil {
		t.Error("unreported fields should stay nil")
	}
	if state.Position == nil {
		t.Fatal("Position is nil")
	}
	if state.Position.Longitude != 77.02 || state.Position.Source != models.PositionFromStream {
		t.Errorf("Position = %+v", *state.Position)
	}
	if want := time.UnixMilli(1760000000000).UTC(); !state.ServerTime.Equal(want) {
		t.Errorf("ServerTime = %v, want %v", state.ServerTime, want)
	}
	if !state.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should be left for the caller")
	}
}

func TestParseFrame_ServerTimeSeconds(t *testing.T) {
	state, err := ParseFrame("S26", []byte(`{"data":[{"value":{"sPM2":"7"},"srvtime":1760000000}]}`))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if want := time.Unix(1760000000, 0).UTC(); !state.ServerTime.Equal(want) {
		t.Errorf("ServerTime = %v, want %v", state.ServerTime, want)
	}
}

func TestParseFrame_Position(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantPos bool
	}{
		{"lon", `"lat":28.4,"lon":77.1`, true},
		{"long", `"lat":28.4,"long":77.1`, true},
		{"string coordinates", `"lat":"28.4","lon":"77.1"`, true},
		{"zero fix", `"lat":0,"lon":0`, false},
		{"missing lon", `"lat":28.4`, false},
		{"no position", `"rh":50`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"data":[{"value":{"sPM2":10,` + tt.value + `},"srvtime":1760000000000}]}`)
			state, err := ParseFrame("X", raw)
			if err != nil {
				t.Fatalf("ParseFrame() error = %v", err)
			}
			if got := state.Position != nil; got != tt.wantPos {
				t.Errorf("position present = %v, want %v", got, tt.wantPos)
			}
		})
	}
}

func TestParseFrame_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `hello`},
		{"empty object", `{}`},
		{"empty data", `{"data":[]}`},
		{"data not array", `{"data":{"value":{}}}`},
		{"value missing", `{"data":[{"srvtime":1}]}`},
		{"value not object", `{"data":[{"value":[1,2],"srvtime":1760000000000}]}`},
		{"value null", `{"data":[{"value":null,"srvtime":1760000000000}]}`},
		{"pm25 missing", `{"data":[{"value":{"sPM10":3},"srvtime":1760000000000}]}`},
		{"pm25 not numeric", `{"data":[{"value":{"sPM2":"n/a"},"srvtime":1760000000000}]}`},
		{"pm25 NaN string", `{"data":[{"value":{"sPM2":"NaN"},"srvtime":1760000000000}]}`},
		{"pm25 bool", `{"data":[{"value":{"sPM2":true},"srvtime":1760000000000}]}`},
		{"srvtime missing", `{"data":[{"value":{"sPM2":3}}]}`},
		{"srvtime text", `{"data":[{"value":{"sPM2":3},"srvtime":"yesterday"}]}`},
		{"srvtime zero", `{"data":[{"value":{"sPM2":3},"srvtime":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame("X", []byte(tt.raw))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("ParseFrame() error = %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestParseFrame_NonNumericOptionalIgnored(t *testing.T) {
	state, err := ParseFrame("X", []byte(`{"data":[{"value":{"sPM2":5,"temp":"--","rh":null},"srvtime":1760000000000}]}`))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if state.Temperature != nil || state.Humidity != nil {
		t.Errorf("non-numeric optional fields should be absent, got temp=%v rh=%v", state.Temperature, state.Humidity)
	}
}
