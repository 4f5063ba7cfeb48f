// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package main is the entry point for the AirPulse server.

AirPulse sits between an environmental-sensor dashboard and the sensor
backends. Each dashboard session selects a device group, subscribes to the
live stream of every selected device, and receives merged per-device state,
group aggregates and a rotating focus device over a push WebSocket.

# Application Architecture

	RootSupervisor ("airpulse")
	├── DataSupervisor ("data-layer")
	│   └── Embedded NATS server (NATS_ENABLED and NATS_EMBEDDED)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Push hub
	│   ├── Session manager (one aggregator per dashboard session)
	│   └── Reading publisher (NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Upstream client: HTTP with retry, circuit breaker and cache, or mock
 4. Streamer: WebSocket per device, or mock
 5. Device store: in-memory or BadgerDB
 6. NATS: optional embedded server and Watermill publisher
 7. Supervisor tree, then the HTTP server

# Configuration

Priority: environment variables > config file > defaults.

	# Server
	HTTP_PORT=3857
	HTTP_SHUTDOWN_TIMEOUT=10s
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Backends
	UPSTREAM_MODE=mock           # production or mock
	UPSTREAM_BASE_URL=https://...
	UPSTREAM_HISTORY_URL=http://...
	UPSTREAM_TOKEN=<bearer token>
	STREAM_BASE_URL=wss://...

	# Sessions
	ROTATION_INTERVAL=5s
	STALE_AFTER=60s
	MAX_SESSIONS=100
	SESSION_IDLE_TIMEOUT=30m

	# Optional fan-out
	NATS_ENABLED=false
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=true

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT, every session is closed, push clients receive a
close frame, and the device store and NATS connection are closed last.

# Example Usage

Local development with synthetic data:

	UPSTREAM_MODE=mock LOG_FORMAT=console ./airpulse

Production:

	export UPSTREAM_MODE=production
	export UPSTREAM_TOKEN=...
	export CORS_ORIGINS=https://dashboard.example.org
	export DEVICE_STORE_BACKEND=badger
	./airpulse
*/
package main
