// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/airpulse/internal/models"
)

// historyResponse is {"data":[{"data":[row, ...]}]}.
type historyResponse struct {
	Data []struct {
		Data []map[string]json.RawMessage `json:"data"`
	} `json:"data"`
}

// points keeps rows whose sPM2, sPM10, temp, rh and srvtime are all JSON
// numbers, sorted by time, trimmed to the newest maxPoints.
func (r *historyResponse) points(maxPoints int) []models.HistoryPoint {
	if len(r.Data) == 0 {
		return []models.HistoryPoint{}
	}
	rows := r.Data[0].Data
	out := make([]models.HistoryPoint, 0, len(rows))
	for _, row := range rows {
		var v [5]float64
		ok := true
		for i, key := range [...]string{"sPM2", "sPM10", "temp", "rh", "srvtime"} {
			if v[i], ok = jsonNumber(row[key]); !ok {
				break
			}
		}
		if !ok {
			continue
		}
		out = append(out, models.HistoryPoint{
			Time:        time.UnixMilli(int64(v[4])).UTC(),
			PM25:        v[0],
			PM10:        v[1],
			Temperature: v[2],
			Humidity:    v[3],
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if maxPoints > 0 && len(out) > maxPoints {
		out = out[len(out)-maxPoints:]
	}
	return out
}

// jsonNumber accepts only JSON numbers; numeric strings are rejected.
func jsonNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || raw[0] == '"' || string(raw) == "null" {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
