package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"queryd/internal/domain"
)

// DefaultTTL is how long an idle session survives before the reaper closes it.
const DefaultTTL = 30 * time.Minute

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
}

// NewManager creates a Manager. A non-positive ttl falls back to DefaultTTL.
func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger.With("component", "sessions"),
	}
}

// Create opens a session for principal.
func (m *Manager) Create(principal string) *Session {
	s := newSession(principal)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("session opened", "session_id", s.id, "principal", principal)
	return s
}

// Get returns the session with the given id and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound("session %s not found", id)
	}
	if s.Closing() {
		return nil, domain.ErrNotFound("session %s is closing", id)
	}
	s.Touch()
	return s, nil
}

// Close ends the session with the given id, canceling its background work.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotFound("session %s not found", id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.close()
	m.logger.Info("session closed", "session_id", id)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle closes sessions idle longer than the TTL. Run it in a background
// goroutine; it exits when ctx is canceled.
func (m *Manager) ReapIdle(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapOnce()
		}
	}
}

func (m *Manager) reapOnce() {
	// Collect stale sessions under the lock, finalize them after releasing
	// it so in-flight cancellation work never runs while holding m.mu.
	m.mu.Lock()
	var stale []*Session
	cutoff := time.Now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.getLastUsed().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.close()
		m.logger.Info("session reaped", "session_id", s.id, "principal", s.principal)
	}
}

// CloseAll ends every session. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}
