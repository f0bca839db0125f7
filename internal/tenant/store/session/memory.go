package session

import (
	"context"
	"sync"
	"time"

	id "roster/pkg/domain"

	"roster/internal/sentinel"
	"roster/internal/tenant/models"
)

// ErrNotFound is returned when a session is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores sessions in memory for tests and the demo environment.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewInMemory creates an in-memory session store.
func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]*models.Session)}
}

// Create inserts a new session.
func (s *InMemory) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.ID.String()] = &c
	return nil
}

// FindByID retrieves a session by its UUID.
func (s *InMemory) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[sessionID.String()]; ok {
		c := *sess
		return &c, nil
	}
	return nil, ErrNotFound
}

// DeleteExpired removes sessions whose lifetime elapsed before now.
// Returns the number of sessions removed.
func (s *InMemory) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored sessions. Test helper.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
