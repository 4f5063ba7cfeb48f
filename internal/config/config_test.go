// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad mode", func(c *Config) { c.Upstream.Mode = "staging" }, "UPSTREAM_MODE"},
		{"production needs http url", func(c *Config) {
			c.Upstream.Mode = ModeProduction
			c.Upstream.BaseURL = "ftp://example.org"
		}, "UPSTREAM_BASE_URL"},
		{"production base url without path", func(c *Config) {
			c.Upstream.Mode = ModeProduction
			c.Upstream.BaseURL = "https://example.org/api"
		}, "remove path"},
		{"production history url may have path", func(c *Config) {
			c.Upstream.Mode = ModeProduction
			c.Upstream.HistoryURL = "https://example.org/v1"
		}, ""},
		{"production needs ws stream url", func(c *Config) {
			c.Upstream.Mode = ModeProduction
			c.Stream.BaseURL = "https://bw06.kaatru.org/stream"
		}, "STREAM_BASE_URL"},
		{"placeholder token", func(c *Config) {
			c.Upstream.Mode = ModeProduction
			c.Upstream.Token = "CHANGEME"
		}, "UPSTREAM_TOKEN"},
		{"ping not shorter than read timeout", func(c *Config) {
			c.Stream.PingInterval = c.Stream.ReadTimeout
		}, "STREAM_PING_INTERVAL"},
		{"reconnect bounds", func(c *Config) {
			c.Stream.ReconnectEnabled = true
			c.Stream.ReconnectMax = 100 * time.Millisecond
		}, "STREAM_RECONNECT_INITIAL"},
		{"template without wildcard", func(c *Config) {
			c.Aggregator.DefaultTopicTemplate = "prod/gur/sen"
		}, "DEFAULT_TOPIC_TEMPLATE"},
		{"zero stale after", func(c *Config) { c.Aggregator.StaleAfter = 0 }, "STALE_AFTER"},
		{"bad window", func(c *Config) { c.History.DefaultWindow = "2H" }, "HISTORY_DEFAULT_WINDOW"},
		{"badger without path", func(c *Config) {
			c.DeviceStore.Backend = "badger"
			c.DeviceStore.Path = ""
		}, "DEVICE_STORE_PATH"},
		{"bad store backend", func(c *Config) { c.DeviceStore.Backend = "redis" }, "DEVICE_STORE_BACKEND"},
		{"bad nats url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = "http://localhost:4222"
		}, "NATS_URL"},
		{"wildcard subject prefix", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.SubjectPrefix = "telemetry.>"
		}, "NATS_SUBJECT_PREFIX"},
		{"rate limit out of range", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"rate limit ignored when disabled", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Address(); got != "127.0.0.1:8080" {
		t.Errorf("Address() = %q", got)
	}
}

func TestHasWildcardCORS(t *testing.T) {
	cfg := defaultConfig()
	if !cfg.HasWildcardCORS() {
		t.Error("default CORS should be wildcard")
	}
	cfg.Security.CORSOrigins = []string{"https://dash.example"}
	if cfg.HasWildcardCORS() {
		t.Error("explicit origins should not be wildcard")
	}
}
