// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"testing"

	"github.com/tomtom215/airpulse/internal/models"
)

func TestFocus_RotationVisitsInOrder(t *testing.T) {
	f := newFocus(true)
	live := []string{"A", "B", "C"}

	want := []string{"A", "B", "C", "A", "B", "C", "A"}
	for i, w := range want {
		got := f.resolve(live)
		if got.DeviceID != w {
			t.Fatalf("tick %d: focus = %q, want %q", i, got.DeviceID, w)
		}
		if got.Reason != models.FocusRotation {
			t.Fatalf("tick %d: reason = %q", i, got.Reason)
		}
		f.advance(len(live))
	}
}

func TestFocus_PinTakesPrecedence(t *testing.T) {
	f := newFocus(true)
	live := []string{"A", "B", "C"}

	f.advance(len(live))
	if got := f.resolve(live).DeviceID; got != "B" {
		t.Fatalf("focus = %q, want B", got)
	}

	f.pinned = "C"
	got := f.resolve(live)
	if got.DeviceID != "C" || got.Reason != models.FocusPinned || got.PinnedDeviceID != "C" {
		t.Fatalf("pinned focus = %+v", got)
	}

	// Rotation does not move while pinned.
	for i := 0; i < 5; i++ {
		f.advance(len(live))
		if got := f.resolve(live).DeviceID; got != "C" {
			t.Fatalf("after tick %d focus = %q, want C", i, got)
		}
	}

	f.pinned = ""
	if got := f.resolve(live).DeviceID; got != "B" {
		t.Errorf("after unpin focus = %q, want B", got)
	}
}

func TestFocus_PinClearedWhenDeviceLeaves(t *testing.T) {
	f := newFocus(false)
	f.pinned = "B"
	if got := f.resolve([]string{"A", "B"}).DeviceID; got != "B" {
		t.Fatalf("focus = %q, want B", got)
	}

	got := f.resolve([]string{"A", "C"})
	if got.DeviceID != "A" || got.Reason != models.FocusFirst {
		t.Errorf("focus = %+v, want first device A", got)
	}
	if f.pinned != "" {
		t.Errorf("pin = %q, want cleared", f.pinned)
	}

	// The pin stays cleared when B comes back.
	if got := f.resolve([]string{"A", "B"}).DeviceID; got != "A" {
		t.Errorf("focus = %q, want A", got)
	}
}

func TestFocus_IndexResetWhenOutOfRange(t *testing.T) {
	f := newFocus(true)
	live := []string{"A", "B", "C"}
	f.advance(3)
	f.advance(3)
	if got := f.resolve(live).DeviceID; got != "C" {
		t.Fatalf("focus = %q, want C", got)
	}

	got := f.resolve([]string{"A", "B"})
	if got.DeviceID != "A" || got.RotationIndex != 0 {
		t.Errorf("focus = %+v, want A at index 0", got)
	}
}

func TestFocus_RotationDisabled(t *testing.T) {
	f := newFocus(false)
	live := []string{"B", "C"}
	for i := 0; i < 3; i++ {
		f.advance(len(live))
		got := f.resolve(live)
		if got.DeviceID != "B" || got.Reason != models.FocusFirst {
			t.Fatalf("focus = %+v, want first device B", got)
		}
	}
}

func TestFocus_EmptyLiveSet(t *testing.T) {
	f := newFocus(true)
	f.advance(0)
	got := f.resolve(nil)
	if got.HasFocus() || got.Reason != models.FocusNone {
		t.Errorf("focus = %+v, want none", got)
	}
}

func TestFocus_Reset(t *testing.T) {
	f := newFocus(true)
	f.pinned = "A"
	f.index = 2
	f.reset()
	if f.pinned != "" || f.index != 0 {
		t.Errorf("after reset pinned=%q index=%d", f.pinned, f.index)
	}
	if !f.rotationEnabled {
		t.Error("reset must not change the rotation setting")
	}
}
