// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "dashboard"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestTokenSource(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		token     string
		wantToken bool
		wantErr   error
	}{
		{"empty", "", false, nil},
		{"opaque", "abc123", true, nil},
		{"valid jwt", signedToken(t, now.Add(time.Hour)), true, nil},
		{"jwt without exp", signedToken(t, time.Time{}), true, nil},
		{"expired jwt", signedToken(t, now.Add(-time.Minute)), false, ErrTokenExpired},
		{"expires within skew", signedToken(t, now.Add(10*time.Second)), false, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewTokenSource(tt.token)
			src.now = func() time.Time { return now }

			got, err := src.Token()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Token() error = %v, want %v", err, tt.wantErr)
				}
				if src.Alive() {
					t.Error("Alive() = true for expired token")
				}
				return
			}
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if (got != "") != tt.wantToken {
				t.Errorf("Token() = %q", got)
			}
			if src.Alive() != tt.wantToken {
				t.Errorf("Alive() = %v, want %v", src.Alive(), tt.wantToken)
			}
		})
	}
}

func TestTokenSource_SetToken(t *testing.T) {
	src := NewTokenSource("")
	src.SetToken("  fresh  ")
	got, err := src.Token()
	if err != nil || got != "fresh" {
		t.Errorf("Token() = %q, %v", got, err)
	}
}

func TestTokenSource_Nil(t *testing.T) {
	var src *TokenSource
	got, err := src.Token()
	if got != "" || err != nil {
		t.Errorf("nil Token() = %q, %v", got, err)
	}
}
