package storage

import (
	"context"
	"sync"
	"time"
)

type sessionEntry struct {
	values   map[string]string
	lastSeen time.Time
}

// SessionStore is an in-memory ports.SessionStore. Sessions idle for longer
// than the TTL are evicted lazily on access and by Sweep.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store. A zero ttl disables eviction.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save stores value for the session.
func (s *SessionStore) Save(_ context.Context, session, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	e, ok := s.sessions[session]
	if !ok || s.expired(e, now) {
		e = &sessionEntry{values: make(map[string]string)}
		s.sessions[session] = e
	}

	e.values[key] = value
	e.lastSeen = now

	return nil
}

// Load returns the session value for key.
func (s *SessionStore) Load(_ context.Context, session, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	e, ok := s.sessions[session]
	if !ok {
		return "", false, nil
	}

	if s.expired(e, now) {
		delete(s.sessions, session)
		return "", false, nil
	}

	e.lastSeen = now
	v, ok := e.values[key]

	return v, ok, nil
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *SessionStore) expired(e *sessionEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}
