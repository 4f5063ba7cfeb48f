// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/airpulse/config.yaml)
//  3. Environment variables listed in envTransformFunc
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Upstream    UpstreamConfig    `koanf:"upstream"`
	Stream      StreamConfig      `koanf:"stream"`
	Aggregator  AggregatorConfig  `koanf:"aggregator"`
	History     HistoryConfig     `koanf:"history"`
	DeviceStore DeviceStoreConfig `koanf:"device_store"`
	NATS        NATSConfig        `koanf:"nats"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Address returns host:port for http.Server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamMode selects real backends or synthetic ones.
const (
	ModeProduction = "production"
	ModeMock       = "mock"
)

// UpstreamConfig configures the group/device/history HTTP backends.
//
// Environment Variables:
//   - UPSTREAM_MODE: production or mock (default: mock)
//   - UPSTREAM_BASE_URL: group and device metadata service
//   - UPSTREAM_HISTORY_URL: spatio-temporal history service
//   - UPSTREAM_TOKEN: bearer token sent on every request
type UpstreamConfig struct {
	Mode           string        `koanf:"mode"`
	BaseURL        string        `koanf:"base_url"`
	HistoryURL     string        `koanf:"history_url"`
	Token          string        `koanf:"token"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	CircuitBreaker bool          `koanf:"circuit_breaker"`
}

// IsMock reports whether synthetic backends are selected.
func (u UpstreamConfig) IsMock() bool {
	return u.Mode == ModeMock
}

// StreamConfig configures per-device streaming subscriptions.
type StreamConfig struct {
	// BaseURL is prefixed to the substituted topic: <base_url>/<topic>.
	BaseURL          string        `koanf:"base_url"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	ReadTimeout      time.Duration `koanf:"read_timeout"`
	PingInterval     time.Duration `koanf:"ping_interval"`
	MaxMessageSize   int64         `koanf:"max_message_size"`

	// DialRate and DialBurst bound how fast subscriptions are opened.
	DialRate  float64 `koanf:"dial_rate"`
	DialBurst int     `koanf:"dial_burst"`

	// Reconnect is off by default: a dropped subscription leaves the
	// device to go stale until the selection or group changes.
	ReconnectEnabled bool          `koanf:"reconnect_enabled"`
	ReconnectInitial time.Duration `koanf:"reconnect_initial"`
	ReconnectMax     time.Duration `koanf:"reconnect_max"`

	// MockInterval is the frame period of the synthetic streamer.
	MockInterval time.Duration `koanf:"mock_interval"`
}

// AggregatorConfig configures live state, focus and session handling.
type AggregatorConfig struct {
	DefaultTopicTemplate string        `koanf:"default_topic_template"`
	RotationInterval     time.Duration `koanf:"rotation_interval"`
	RotationEnabled      bool          `koanf:"rotation_enabled"`
	StaleAfter           time.Duration `koanf:"stale_after"`
	StaleCheckInterval   time.Duration `koanf:"stale_check_interval"`
	NoDataTimeout        time.Duration `koanf:"no_data_timeout"`
	FrameBuffer          int           `koanf:"frame_buffer"`
	SessionIdleTimeout   time.Duration `koanf:"session_idle_timeout"`
	SessionReapInterval  time.Duration `koanf:"session_reap_interval"`
	MaxSessions          int           `koanf:"max_sessions"`
}

// HistoryConfig configures historical range queries.
type HistoryConfig struct {
	DefaultWindow string        `koanf:"default_window"`
	MaxPoints     int           `koanf:"max_points"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
}

// DeviceStoreConfig configures the static device position cache.
type DeviceStoreConfig struct {
	// Backend is "badger" (persistent) or "memory".
	Backend string        `koanf:"backend"`
	Path    string        `koanf:"path"`
	TTL     time.Duration `koanf:"ttl"`
}

// NATSConfig configures reading republication.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
	BufferSize     int           `koanf:"buffer_size"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
