// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

// Package config loads and validates AirPulse configuration.
//
// Configuration is layered with Koanf v2: struct defaults, then an optional
// YAML file, then environment variables. Only environment variables named in
// the mapping table are read, so unrelated variables never leak into config.
//
// Example config.yaml:
//
//	upstream:
//	  mode: production
//	  base_url: https://bw04.kaatru.org
//	  timeout: 30s
//	stream:
//	  base_url: wss://bw06.kaatru.org/stream
//	aggregator:
//	  rotation_interval: 5s
//	  stale_after: 60s
//	nats:
//	  enabled: true
//	  embedded_server: true
//
// Comma-separated environment values (CORS_ORIGINS) are split into slices.
package config
