package session

import (
	"context"
	"sync"
)

// Manager is the in-memory session registry. Authenticated sessions are
// keyed by user id, guest sessions by their device session id, so a login
// on one device never collides with a guest tab on another.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a new Manager instance
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for the identity, creating and restoring it on
// first use. userID is empty for guests; key is the user id when
// authenticated, the guest session id otherwise.
func (m *Manager) Get(ctx context.Context, key, userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := New(ctx, m.deps, key, userID)
	m.sessions[key] = s
	return s
}

// Close flushes every session's pending debounced write. Called on
// shutdown.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Flush(ctx)
	}
}
