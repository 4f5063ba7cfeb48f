// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import "errors"

var (
	// ErrUnknownSession is returned for session IDs the manager does not hold.
	ErrUnknownSession = errors.New("unknown session")

	// ErrTooManySessions is returned when max_sessions is reached.
	ErrTooManySessions = errors.New("too many sessions")

	// ErrUnknownDevice is returned when a device is not a member of the
	// current group.
	ErrUnknownDevice = errors.New("device is not a member of the current group")

	// ErrDeviceNotLive is returned when pinning a device without live state.
	ErrDeviceNotLive = errors.New("device is not live")

	// ErrNoGroup is returned by operations that need a resolved group.
	ErrNoGroup = errors.New("no group selected")

	// ErrNoFocus is returned when no device is in focus.
	ErrNoFocus = errors.New("no device in focus")

	// ErrSuperseded is returned when a newer group selection started while
	// this one was being resolved.
	ErrSuperseded = errors.New("group selection superseded by a newer request")

	// ErrClosed is returned once the aggregator has stopped.
	ErrClosed = errors.New("aggregator closed")
)
