// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/metrics"
	"github.com/tomtom215/airpulse/internal/models"
)

// maxErrorBodySize bounds how much of an error response is kept.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads at most maxErrorBodySize bytes for error messages.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// HTTPClient is the production Client.
type HTTPClient struct {
	baseURL        string
	historyURL     string
	tokens         *TokenSource
	client         *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	maxPoints      int
}

// NewHTTPClient creates a client for the group and history services.
func NewHTTPClient(cfg *config.UpstreamConfig, maxPoints int, tokens *TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		historyURL:     strings.TrimRight(cfg.HistoryURL, "/"),
		tokens:         tokens,
		client:         &http.Client{Timeout: cfg.Timeout},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		maxPoints:      maxPoints,
	}
}

// doRequestWithRateLimit performs a GET, retrying HTTP 429 with exponential
// backoff (base, 2x base, 4x base, ...). Retry-After in seconds overrides the
// computed delay.
func (c *HTTPClient) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(strings.TrimSpace(ra)); perr == nil && secs >= 0 {
				delay = time.Duration(secs) * time.Second
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// getJSON fetches reqURL and decodes a 200 response into result.
func (c *HTTPClient) getJSON(ctx context.Context, op, reqURL string, result interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.RecordUpstreamRequest(op, time.Since(start), err) }()

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", op, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

type groupResponse struct {
	Devices []string    `json:"devices"`
	Group   []groupInfo `json:"group"`
}

type groupInfo struct {
	ID        flexString `json:"id"`
	Name      string     `json:"name"`
	MQTTTopic string     `json:"mqtt_topic"`
	Devices   []string   `json:"devices"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

// ResolveGroup implements Client.
func (c *HTTPClient) ResolveGroup(ctx context.Context, groupID string) (*models.DeviceGroup, error) {
	reqURL := fmt.Sprintf("%s/group?%s", c.baseURL, url.Values{"id": {groupID}}.Encode())

	var resp groupResponse
	if err := c.getJSON(ctx, "resolve_group", reqURL, &resp); err != nil {
		return nil, err
	}

	g := &models.DeviceGroup{ID: groupID, DeviceIDs: dedupe(resp.Devices)}
	if len(resp.Group) > 0 {
		g.Name = resp.Group[0].Name
		g.TopicTemplate = strings.TrimSpace(resp.Group[0].MQTTTopic)
	}
	return g, nil
}

// ListGroups implements Client. The listing is either a bare array or
// wrapped in {"group": [...]}.
func (c *HTTPClient) ListGroups(ctx context.Context) ([]models.GroupSummary, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "list_groups", c.baseURL+"/group/all", &raw); err != nil {
		return nil, err
	}

	var items []groupInfo
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list_groups response: %w", err)
		}
	} else {
		var wrapped groupResponse
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode list_groups response: %w", err)
		}
		items = wrapped.Group
	}

	out := make([]models.GroupSummary, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		out = append(out, models.GroupSummary{ID: string(it.ID), Name: it.Name, DeviceCount: len(it.Devices)})
	}
	return out, nil
}

type deviceResponse struct {
	Device []map[string]json.RawMessage `json:"device"`
}

// DeviceLocation implements Client.
func (c *HTTPClient) DeviceLocation(ctx context.Context, deviceID string) (*models.Position, error) {
	reqURL := fmt.Sprintf("%s/device?%s", c.baseURL, url.Values{"id": {deviceID}}.Encode())

	var resp deviceResponse
	if err := c.getJSON(ctx, "device_location", reqURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Device) == 0 {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	d := resp.Device[0]
	p := &models.Position{
		Latitude:  firstNumber(d, "lat", "latitude"),
		Longitude: firstNumber(d, "lon", "longitude"),
		Source:    models.PositionFromStatic,
	}
	if !p.Usable() {
		return nil, fmt.Errorf("device %s has no registered position: %w", deviceID, ErrNotFound)
	}
	return p, nil
}

// History implements Client.
func (c *HTTPClient) History(ctx context.Context, deviceID string, window models.HistoryWindow) (*models.HistorySeries, error) {
	params := url.Values{"id": {deviceID}, "window": {string(window)}}
	reqURL := fmt.Sprintf("%s/spatio-temporal/raw?%s", c.historyURL, params.Encode())

	var resp historyResponse
	if err := c.getJSON(ctx, "history", reqURL, &resp); err != nil {
		return nil, err
	}
	return &models.HistorySeries{
		DeviceID: deviceID,
		Window:   window,
		Points:   resp.points(c.maxPoints),
	}, nil
}

// Ping checks that the group service answers.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var raw json.RawMessage
	return c.getJSON(ctx, "ping", c.baseURL+"/group/all", &raw)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// firstNumber returns the first key holding a non-zero number or numeric
// string, or 0.
func firstNumber(m map[string]json.RawMessage, keys ...string) float64 {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil && v != 0 {
			return v
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}
