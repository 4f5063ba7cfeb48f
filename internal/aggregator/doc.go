// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package aggregator maintains the live telemetry view of a dashboard session.

An Aggregator resolves a device group to its members and topic template,
keeps one streaming subscription per selected device, and merges inbound
frames into a live-state map. The focused device and the cross-device
aggregate are derived from that map.

# Concurrency

Every state transition runs on the goroutine executing Run. API setters
reach it through a command channel, subscriptions hand parsed frames over a
frame channel, and two tickers drive focus rotation and staleness checks.
Subscription goroutines never touch aggregator state.

Teardown on a group change closes every subscription of the old scope,
waits for their goroutines to exit, clears the live state and only then
opens subscriptions for the new scope. A frame is applied only if the
subscription that produced it is still the registered one for its device,
so frames queued before teardown are discarded.

# Sessions

Manager owns one Aggregator per dashboard session, identified by a UUID.
Sessions idle for longer than the configured timeout are reaped.

# Focus

A pinned device that is still live is always the focus. Otherwise, with
rotation enabled, focus walks the lexicographically sorted live device IDs
one step per rotation tick; with rotation disabled it is the first sorted
ID. A pinned device leaving the live set clears the pin.
*/
package aggregator
