// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/metrics"
)

// Session close reasons, used as metric labels.
const (
	CloseReasonDeleted  = "deleted"
	CloseReasonIdle     = "idle"
	CloseReasonShutdown = "shutdown"
)

// sessionObserver is implemented by notifiers that track push clients per
// session, such as the WebSocket hub.
type sessionObserver interface {
	SessionClientCount(sessionID string) int
	CloseSession(sessionID string)
}

// ManagerConfig bounds the session population.
type ManagerConfig struct {
	MaxSessions  int
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

type session struct {
	agg      *Aggregator
	cancel   context.CancelFunc
	lastSeen time.Time
}

// Manager owns one Aggregator per dashboard session.
type Manager struct {
	cfg    ManagerConfig
	aggCfg Config
	deps   Deps
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	sessions map[string]*session
	closing  bool
}

// NewManager creates a manager. Sessions are started on demand by Create.
func NewManager(cfg ManagerConfig, aggCfg Config, deps Deps) *Manager {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 100
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	return &Manager{
		cfg:      cfg,
		aggCfg:   aggCfg,
		deps:     deps,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: make(map[string]*session),
	}
}

// Create starts a new session and returns its aggregator.
func (m *Manager) Create() (*Aggregator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return nil, ErrClosed
	}
	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := m.newID()
	agg := New(id, m.aggCfg, m.deps)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = agg.Run(ctx)
	}()

	m.sessions[id] = &session{agg: agg, cancel: cancel, lastSeen: m.now()}
	metrics.SessionsActive.Inc()
	logging.Info().Str("session_id", id).Int("sessions", len(m.sessions)).Msg("session created")
	return agg, nil
}

// Get returns the aggregator of a session and marks it active.
func (m *Manager) Get(id string) (*Aggregator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	s.lastSeen = m.now()
	return s.agg, nil
}

// Touch marks a session active without returning it.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = m.now()
	}
}

// Delete stops a session and waits for its subscriptions to close.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	m.stop(id, s, CloseReasonDeleted)
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns the open session IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Serve reaps idle sessions until ctx is canceled, then closes every
// session. It implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return ctx.Err()
		case <-ticker.C:
			m.reap()
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (m *Manager) String() string {
	return "session-manager"
}

// reap stops sessions idle for longer than the idle timeout. Sessions with
// connected push clients are considered active.
func (m *Manager) reap() int {
	observer, _ := m.deps.Notifier.(sessionObserver)
	now := m.now()

	m.mu.Lock()
	expired := make(map[string]*session)
	for id, s := range m.sessions {
		if observer != nil && observer.SessionClientCount(id) > 0 {
			s.lastSeen = now
			continue
		}
		if now.Sub(s.lastSeen) > m.cfg.IdleTimeout {
			expired[id] = s
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, s := range expired {
		m.stop(id, s, CloseReasonIdle)
	}
	if len(expired) > 0 {
		logging.Info().Int("reaped", len(expired)).Msg("reaped idle sessions")
	}
	return len(expired)
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closing = true
	all := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for id, s := range all {
		wg.Add(1)
		go func(id string, s *session) {
			defer wg.Done()
			m.stop(id, s, CloseReasonShutdown)
		}(id, s)
	}
	wg.Wait()
}

func (m *Manager) stop(id string, s *session, reason string) {
	s.cancel()
	<-s.agg.Done()
	if observer, ok := m.deps.Notifier.(sessionObserver); ok {
		observer.CloseSession(id)
	}
	metrics.RecordSessionClosed(reason)
	logging.Info().Str("session_id", id).Str("reason", reason).Msg("session closed")
}
