// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package eventbus republishes accepted device readings to NATS.

Every frame an aggregator accepts is handed to a Publisher, which queues it
without blocking and publishes it from its own goroutine through a Watermill
NATS publisher. The subject is

	<nats.subject_prefix>.<group id>.<device id>

e.g. telemetry.gurugram.SG98, and the payload is the LiveDeviceState JSON.
Downstream consumers (archivers, alerting) subscribe with telemetry.> or a
narrower wildcard.

Readings are published on core NATS: a reading that cannot be delivered is
superseded by the next one a few seconds later. When the queue is full the
reading is dropped and counted in nats_readings_dropped_total.

EmbeddedServer runs an in-process NATS server (with JetStream storage under
nats.store_dir) for single-node deployments without an external broker.
*/
package eventbus
