// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package api exposes dashboard sessions over HTTP.

A dashboard creates a session, selects a group, optionally narrows the
selection, and then either polls the session resources or attaches to the
session push stream. Every response uses the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "error": {"code": "SESSION_NOT_FOUND", "message": "..."}}

Routes (chi, see SetupChi):

	POST   /api/v1/sessions
	DELETE /api/v1/sessions/{sessionID}
	PUT    /api/v1/sessions/{sessionID}/group          {"group_id": "..."}
	PUT    /api/v1/sessions/{sessionID}/selection      {"device_ids": [...]}
	GET    /api/v1/sessions/{sessionID}/live
	GET    /api/v1/sessions/{sessionID}/aggregate
	GET    /api/v1/sessions/{sessionID}/status
	GET    /api/v1/sessions/{sessionID}/snapshot
	GET    /api/v1/sessions/{sessionID}/focus
	PUT    /api/v1/sessions/{sessionID}/focus/pin      {"device_id": "..."}
	DELETE /api/v1/sessions/{sessionID}/focus/pin
	PUT    /api/v1/sessions/{sessionID}/focus/rotation {"enabled": true}
	GET    /api/v1/sessions/{sessionID}/focus/history?window=15M
	GET    /api/v1/sessions/{sessionID}/ws
	GET    /api/v1/groups
	GET    /api/v1/devices/{deviceID}/history?window=15M
	GET    /api/v1/health, /api/v1/health/live, /api/v1/health/ready
	GET    /metrics

Errors:

Handlers return sentinel errors from the aggregator, upstream, stream and
models packages unchanged; respondAppError maps them to status codes with
errors.Is (see errorMappings). Upstream failures without a mapping become
502 UPSTREAM_ERROR.
*/
package api
