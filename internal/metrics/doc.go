// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

// Package metrics defines the Prometheus collectors of AirPulse.
//
// Collectors are package-level promauto variables registered with the default
// registry and exposed on /metrics. Callers use the Record* helpers rather
// than touching label values directly.
//
// Families:
//   - api_*: HTTP request counts, latency and in-flight requests
//   - aggregator_*: sessions, live and stale devices, focus changes, group resolutions
//   - stream_*: subscription lifecycle and inbound frame outcomes
//   - upstream_*, circuit_breaker_*: upstream API latency and breaker state
//   - websocket_*: push connections and messages
//   - nats_*: reading republication
package metrics
