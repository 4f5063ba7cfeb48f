// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

// Package logging provides the zerolog-based structured logger used across AirPulse.
//
// A single global logger is configured once from main and used through the
// level helpers (Info, Warn, Debug, Error). Request-scoped code should log
// through Ctx so correlation and request IDs travel with every line.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("group", groupID).Msg("Scope installed")
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Group resolution failed")
//
// Libraries that only accept log/slog (suture, Watermill) are bridged with
// NewSlogLogger, which forwards records to the same zerolog backend.
//
// Environment:
//
//	LOG_LEVEL   trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  json, console (default: json)
//	LOG_CALLER  include caller file:line (default: false)
package logging
