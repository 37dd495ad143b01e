package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/locvowork/attendance_bot/internal/domain"
	"github.com/locvowork/attendance_bot/internal/logger"
)

// Session is the transient record of one principal's flow. Scratch fields
// are only meaningful in the states that set them.
type Session struct {
	Principal int64
	State     State

	pendingName string
	markDate    domain.Date
	periodStart domain.Date

	mu       sync.Mutex
	lastSeen time.Time
	expired  bool
}

// reset returns the session to Idle and clears every scratch field.
func (s *Session) reset() {
	s.State = Idle
	s.pendingName = ""
	s.markDate = domain.Date{}
	s.periodStart = domain.Date{}
}

// takeExpired reports, once, that the previous flow was dropped for idling.
func (s *Session) takeExpired() bool {
	e := s.expired
	s.expired = false
	return e
}

// SessionManager owns the per-principal sessions. A session is held by at
// most one message at a time, so messages from one principal are handled
// one after another while different principals proceed in parallel.
type SessionManager struct {
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewSessionManager creates a manager. A zero idleTimeout disables expiry.
func NewSessionManager(idleTimeout time.Duration) *SessionManager {
	return &SessionManager{
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[int64]*Session),
	}
}

// Acquire returns the principal's session, locked. Callers must Release it.
// A flow idle for longer than the timeout is reset on acquire.
func (m *SessionManager) Acquire(principal int64) *Session {
	for {
		m.mu.Lock()
		s, ok := m.sessions[principal]
		if !ok {
			s = &Session{Principal: principal, lastSeen: m.now()}
			m.sessions[principal] = s
		}
		m.mu.Unlock()

		s.mu.Lock()

		// Sweep may have dropped s while we waited for its lock.
		m.mu.Lock()
		current := m.sessions[principal]
		m.mu.Unlock()
		if current != s {
			s.mu.Unlock()
			continue
		}

		if s.State != Idle && m.isIdle(s) {
			s.reset()
			s.expired = true
		}
		return s
	}
}

// Release stamps the session as active and unlocks it.
func (m *SessionManager) Release(s *Session) {
	s.lastSeen = m.now()
	s.mu.Unlock()
}

// Sweep drops sessions idle past the timeout and returns how many it
// removed. Sessions in use are skipped. A flow abandoned mid-way is reset
// instead of dropped, so its principal still hears about the expiry on the
// next message.
func (m *SessionManager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for principal, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		switch {
		case !m.isIdle(s):
		case s.State != Idle:
			s.reset()
			s.expired = true
		case !s.expired:
			delete(m.sessions, principal)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	if m.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.DebugLog(ctx, "Dropped %d idle conversation sessions", n)
			}
		}
	}
}

// Len is the number of sessions held.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) isIdle(s *Session) bool {
	return m.idleTimeout > 0 && m.now().Sub(s.lastSeen) > m.idleTimeout
}
