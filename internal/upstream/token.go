// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package upstream

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew treats tokens about to expire as already expired.
const expirySkew = 30 * time.Second

// TokenSource hands out the bearer token used for upstream requests and
// stream handshakes. JWTs are checked for expiry; opaque tokens are passed
// through unchecked. The signature is not verified: the token is ours to
// present, not to trust.
type TokenSource struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewTokenSource creates a source for token. An empty token disables the
// Authorization header.
func NewTokenSource(token string) *TokenSource {
	return &TokenSource{token: strings.TrimSpace(token), now: time.Now}
}

// SetToken replaces the token.
func (s *TokenSource) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// Token returns the current token, or ErrTokenExpired.
func (s *TokenSource) Token() (string, error) {
	if s == nil {
		return "", nil
	}
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", nil
	}
	exp, ok := tokenExpiry(token)
	if ok && !s.now().Add(expirySkew).Before(exp) {
		return "", fmt.Errorf("%w at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}
	return token, nil
}

// Alive reports whether a usable token is configured.
func (s *TokenSource) Alive() bool {
	token, err := s.Token()
	return err == nil && token != ""
}

// tokenExpiry returns the exp claim of a JWT. ok is false for opaque tokens
// and JWTs without exp.
func tokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
