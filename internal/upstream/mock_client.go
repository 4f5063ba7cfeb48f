// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/tomtom215/airpulse/internal/models"
)

// MockGroupID is the only group served by MockClient.
const MockGroupID = "mock"

// mockDevices are the demo devices and their registered positions.
var mockDevices = []struct {
	id       string
	lat, lon float64
}{
	{"SG98", 28.4595, 77.0266},
	{"S26", 28.4089, 77.0420},
}

// mockHistoryPoints is the number of points generated per window.
const mockHistoryPoints = 60

// MockClient serves synthetic groups, positions and history.
type MockClient struct {
	maxPoints int
	now       func() time.Time
}

// NewMockClient creates a mock upstream.
func NewMockClient(maxPoints int) *MockClient {
	return &MockClient{maxPoints: maxPoints, now: time.Now}
}

// ResolveGroup implements Client.
func (m *MockClient) ResolveGroup(ctx context.Context, groupID string) (*models.DeviceGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if groupID != MockGroupID {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	ids := make([]string, len(mockDevices))
	for i, d := range mockDevices {
		ids[i] = d.id
	}
	return &models.DeviceGroup{
		ID:            MockGroupID,
		Name:          "Mock devices",
		DeviceIDs:     ids,
		TopicTemplate: "prod/gur/+/sen",
	}, nil
}

// ListGroups implements Client.
func (m *MockClient) ListGroups(ctx context.Context) ([]models.GroupSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.GroupSummary{{ID: MockGroupID, Name: "Mock devices", DeviceCount: len(mockDevices)}}, nil
}

// DeviceLocation implements Client.
func (m *MockClient) DeviceLocation(ctx context.Context, deviceID string) (*models.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, d := range mockDevices {
		if d.id == deviceID {
			return &models.Position{Latitude: d.lat, Longitude: d.lon, Source: models.PositionFromStatic}, nil
		}
	}
	return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
}

// History implements Client. Values are smooth curves seeded by the device
// ID so repeated calls for the same window look alike.
func (m *MockClient) History(ctx context.Context, deviceID string, window models.HistoryWindow) (*models.HistorySeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span := window.Duration()
	if span == 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidWindow, window)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	phase := float64(h.Sum32()%360) * math.Pi / 180

	n := mockHistoryPoints
	if m.maxPoints > 0 && n > m.maxPoints {
		n = m.maxPoints
	}
	end := m.now().UTC().Truncate(time.Second)
	step := span / time.Duration(mockHistoryPoints)

	points := make([]models.HistoryPoint, n)
	for i := 0; i < n; i++ {
		t := end.Add(-time.Duration(n-1-i) * step)
		x := phase + float64(i)/8
		pm25 := 35 + 15*math.Sin(x)
		points[i] = models.HistoryPoint{
			Time:        t,
			PM25:        math.Round(pm25*100) / 100,
			PM10:        math.Round(pm25*1.6*100) / 100,
			Temperature: math.Round((30+3*math.Cos(x/2))*100) / 100,
			Humidity:    math.Round((55+10*math.Sin(x/3))*100) / 100,
		}
	}
	return &models.HistorySeries{DeviceID: deviceID, Window: window, Points: points}, nil
}

// Ping implements Client.
func (m *MockClient) Ping(ctx context.Context) error {
	return ctx.Err()
}
