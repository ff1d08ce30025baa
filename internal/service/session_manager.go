package service

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/google/uuid"
)

// SessionFactory creates a session with the given id.
type SessionFactory func(id string) *Session

// SessionManager keeps independent sessions keyed by id.
type SessionManager struct {
	factory SessionFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a new SessionManager instance
func NewSessionManager(factory SessionFactory) *SessionManager {
	return &SessionManager{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// NewSessionFactory returns a factory building sessions from shared deps.
func NewSessionFactory(deps SessionDeps) SessionFactory {
	return func(id string) *Session {
		return NewSession(id, deps)
	}
}

// Create starts a new empty session.
func (m *SessionManager) Create() *Session {
	s := m.factory(uuid.NewString())

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	log.Printf("sessions: created %s", s.ID())
	return s
}

// Get returns the session with the given id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete resets and removes a session, cancelling its ingestion if any.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Reset()
	log.Printf("sessions: deleted %s", id)
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the ids of all live sessions in sorted order.
func (m *SessionManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EvictIdle deletes sessions unused for longer than ttl and returns their
// ids. Sessions that are ingesting are kept.
func (m *SessionManager) EvictIdle(now time.Time, ttl time.Duration) []string {
	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		if s.State() == domain.SessionStateIngesting {
			continue
		}
		if now.Sub(s.LastUsed()) > ttl {
			evicted = append(evicted, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for _, s := range evicted {
		s.Reset()
		ids = append(ids, s.ID())
	}
	sort.Strings(ids)
	return ids
}
