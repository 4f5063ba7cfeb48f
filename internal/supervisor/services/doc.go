// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

// Package services adapts components that do not expose Serve(ctx) to
// suture.Service.
//
//   - HTTPServerService runs an *http.Server and shuts it down with a
//     deadline when the context is canceled.
//   - NATSServerService watches an embedded NATS server and stops it with
//     the tree.
package services
