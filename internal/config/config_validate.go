// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateUpstream,
		c.validateStream,
		c.validateAggregator,
		c.validateHistory,
		c.validateDeviceStore,
		c.validateNATS,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateUpstream() error {
	switch c.Upstream.Mode {
	case ModeMock:
		return nil
	case ModeProduction:
	default:
		return fmt.Errorf("UPSTREAM_MODE must be one of: production, mock")
	}

	if err := validateHTTPURL(c.Upstream.BaseURL, "UPSTREAM_BASE_URL"); err != nil {
		return err
	}
	if err := validateHTTPBaseURL(c.Upstream.HistoryURL, "UPSTREAM_HISTORY_URL"); err != nil {
		return err
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.MaxRetries < 0 || c.Upstream.MaxRetries > 10 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must be between 0 and 10")
	}
	if containsPlaceholder(c.Upstream.Token) {
		return fmt.Errorf("UPSTREAM_TOKEN contains a placeholder value")
	}
	return nil
}

func (c *Config) validateStream() error {
	if !c.Upstream.IsMock() {
		if err := validateStreamURL(c.Stream.BaseURL); err != nil {
			return fmt.Errorf("STREAM_BASE_URL: %w", err)
		}
	}
	if c.Stream.HandshakeTimeout <= 0 {
		return fmt.Errorf("STREAM_HANDSHAKE_TIMEOUT must be positive")
	}
	if c.Stream.PingInterval <= 0 || c.Stream.PingInterval >= c.Stream.ReadTimeout {
		return fmt.Errorf("STREAM_PING_INTERVAL must be positive and shorter than STREAM_READ_TIMEOUT")
	}
	if c.Stream.MaxMessageSize < 1024 {
		return fmt.Errorf("STREAM_MAX_MESSAGE_SIZE must be at least 1024 bytes")
	}
	if c.Stream.DialRate <= 0 || c.Stream.DialBurst < 1 {
		return fmt.Errorf("STREAM_DIAL_RATE and STREAM_DIAL_BURST must be positive")
	}
	if c.Stream.ReconnectEnabled {
		if c.Stream.ReconnectInitial <= 0 || c.Stream.ReconnectMax < c.Stream.ReconnectInitial {
			return fmt.Errorf("STREAM_RECONNECT_INITIAL must be positive and not exceed STREAM_RECONNECT_MAX")
		}
	}
	if c.Upstream.IsMock() && c.Stream.MockInterval <= 0 {
		return fmt.Errorf("STREAM_MOCK_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateAggregator() error {
	a := c.Aggregator
	if strings.Count(a.DefaultTopicTemplate, "+") != 1 {
		return fmt.Errorf("DEFAULT_TOPIC_TEMPLATE must contain exactly one '+' wildcard")
	}
	durations := []struct {
		name string
		val  time.Duration
	}{
		{"ROTATION_INTERVAL", a.RotationInterval},
		{"STALE_AFTER", a.StaleAfter},
		{"STALE_CHECK_INTERVAL", a.StaleCheckInterval},
		{"NO_DATA_TIMEOUT", a.NoDataTimeout},
		{"SESSION_IDLE_TIMEOUT", a.SessionIdleTimeout},
		{"SESSION_REAP_INTERVAL", a.SessionReapInterval},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if a.FrameBuffer < 1 {
		return fmt.Errorf("FRAME_BUFFER must be at least 1")
	}
	if a.MaxSessions < 1 {
		return fmt.Errorf("MAX_SESSIONS must be at least 1")
	}
	return nil
}

// validHistoryWindows are the window codes accepted by the history service.
var validHistoryWindows = map[string]bool{"5M": true, "15M": true, "3H": true, "5H": true, "1D": true}

func (c *Config) validateHistory() error {
	if !validHistoryWindows[c.History.DefaultWindow] {
		return fmt.Errorf("HISTORY_DEFAULT_WINDOW must be one of: 5M, 15M, 3H, 5H, 1D")
	}
	if c.History.MaxPoints < 1 {
		return fmt.Errorf("HISTORY_MAX_POINTS must be at least 1")
	}
	if c.History.CacheTTL < 0 {
		return fmt.Errorf("HISTORY_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateDeviceStore() error {
	switch c.DeviceStore.Backend {
	case "memory":
	case "badger":
		if c.DeviceStore.Path == "" {
			return fmt.Errorf("DEVICE_STORE_PATH is required when DEVICE_STORE_BACKEND=badger")
		}
	default:
		return fmt.Errorf("DEVICE_STORE_BACKEND must be one of: memory, badger")
	}
	if c.DeviceStore.TTL <= 0 {
		return fmt.Errorf("DEVICE_STORE_TTL must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL: %w", err)
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must be a non-empty subject token without wildcards")
	}
	if c.NATS.BufferSize < 1 {
		return fmt.Errorf("NATS_BUFFER_SIZE must be at least 1")
	}
	return nil
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

var (
	validLogLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
)

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns catch values copied verbatim from example configs.
var placeholderPatterns = []string{"REPLACE", "CHANGEME", "CHANGE_ME", "YOUR_TOKEN", "PLACEHOLDER"}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
