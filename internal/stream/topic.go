// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package stream

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the placeholder for the device ID in a topic template.
const Wildcard = "+"

// ErrInvalidTopicTemplate is returned for templates without exactly one wildcard.
var ErrInvalidTopicTemplate = errors.New("topic template must contain exactly one '+'")

// ValidateTemplate checks that template contains exactly one wildcard.
func ValidateTemplate(template string) error {
	if n := strings.Count(template, Wildcard); n != 1 {
		return fmt.Errorf("%w: %q has %d", ErrInvalidTopicTemplate, template, n)
	}
	return nil
}

// Topic substitutes deviceID into template.
func Topic(template, deviceID string) (string, error) {
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}
	if deviceID == "" || strings.ContainsAny(deviceID, "+/#") {
		return "", fmt.Errorf("invalid device id %q for topic", deviceID)
	}
	return strings.Replace(template, Wildcard, deviceID, 1), nil
}
