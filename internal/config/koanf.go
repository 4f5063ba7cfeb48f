// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/airpulse/config.yaml",
	"/etc/airpulse/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultTopicTemplate is used when a group carries no topic template.
const DefaultTopicTemplate = "prod/gur/+/sen"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3857,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Upstream: UpstreamConfig{
			Mode:           ModeMock,
			BaseURL:        "https://bw04.kaatru.org",
			HistoryURL:     "http://localhost:8000/v1",
			Timeout:        30 * time.Second,
			MaxRetries:     5,
			RetryBaseDelay: time.Second,
			CircuitBreaker: true,
		},
		Stream: StreamConfig{
			BaseURL:          "wss://bw06.kaatru.org/stream",
			HandshakeTimeout: 10 * time.Second,
			ReadTimeout:      90 * time.Second,
			PingInterval:     30 * time.Second,
			MaxMessageSize:   64 * 1024,
			DialRate:         20,
			DialBurst:        10,
			ReconnectEnabled: false,
			ReconnectInitial: time.Second,
			ReconnectMax:     30 * time.Second,
			MockInterval:     2 * time.Second,
		},
		Aggregator: AggregatorConfig{
			DefaultTopicTemplate: DefaultTopicTemplate,
			RotationInterval:     5 * time.Second,
			RotationEnabled:      true,
			StaleAfter:           60 * time.Second,
			StaleCheckInterval:   5 * time.Second,
			NoDataTimeout:        30 * time.Second,
			FrameBuffer:          256,
			SessionIdleTimeout:   30 * time.Minute,
			SessionReapInterval:  time.Minute,
			MaxSessions:          100,
		},
		History: HistoryConfig{
			DefaultWindow: "15M",
			MaxPoints:     2000,
			CacheTTL:      30 * time.Second,
		},
		DeviceStore: DeviceStoreConfig{
			Backend: "memory",
			Path:    "/data/devices",
			TTL:     24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			SubjectPrefix:  "telemetry",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			BufferSize:     1024,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration: defaults, then file, then environment.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Upstream
	"upstream_mode":             "upstream.mode",
	"upstream_base_url":         "upstream.base_url",
	"upstream_history_url":      "upstream.history_url",
	"upstream_token":            "upstream.token",
	"upstream_timeout":          "upstream.timeout",
	"upstream_max_retries":      "upstream.max_retries",
	"upstream_retry_base_delay": "upstream.retry_base_delay",
	"upstream_circuit_breaker":  "upstream.circuit_breaker",

	// Stream
	"stream_base_url":          "stream.base_url",
	"stream_handshake_timeout": "stream.handshake_timeout",
	"stream_read_timeout":      "stream.read_timeout",
	"stream_ping_interval":     "stream.ping_interval",
	"stream_max_message_size":  "stream.max_message_size",
	"stream_dial_rate":         "stream.dial_rate",
	"stream_dial_burst":        "stream.dial_burst",
	"stream_reconnect_enabled": "stream.reconnect_enabled",
	"stream_reconnect_initial": "stream.reconnect_initial",
	"stream_reconnect_max":     "stream.reconnect_max",
	"stream_mock_interval":     "stream.mock_interval",

	// Aggregator
	"default_topic_template": "aggregator.default_topic_template",
	"rotation_interval":      "aggregator.rotation_interval",
	"rotation_enabled":       "aggregator.rotation_enabled",
	"stale_after":            "aggregator.stale_after",
	"stale_check_interval":   "aggregator.stale_check_interval",
	"no_data_timeout":        "aggregator.no_data_timeout",
	"frame_buffer":           "aggregator.frame_buffer",
	"session_idle_timeout":   "aggregator.session_idle_timeout",
	"session_reap_interval":  "aggregator.session_reap_interval",
	"max_sessions":           "aggregator.max_sessions",

	// History
	"history_default_window": "history.default_window",
	"history_max_points":     "history.max_points",
	"history_cache_ttl":      "history.cache_ttl",

	// Device store
	"device_store_backend": "device_store.backend",
	"device_store_path":    "device_store.path",
	"device_store_ttl":     "device_store.ttl",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",
	"nats_buffer_size":    "nats.buffer_size",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
