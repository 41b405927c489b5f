package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

// Session keeps the global scope of a client between evaluations.
type Session struct {
	ID      string
	Name    string
	Globals *vm.Scope

	created  time.Time
	lastUsed time.Time
}

// SessionStore manages sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	env      *env.Environment
}

// NewSessionStore creates a session store whose sessions have global
// scopes over e.
func NewSessionStore(e *env.Environment) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		env:      e,
	}
}

// Create creates a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	id := uuid.NewString()
	label := name
	if label == "" {
		label = "session"
	}
	now := time.Now()
	session := &Session{
		ID:       id,
		Name:     name,
		Globals:  s.env.NewGlobalScope(vm.NewModule(label, "")),
		created:  now,
		lastUsed: now,
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	log.Debugf("created session %s (%s)", id, label)
	return session
}

// Get retrieves a session by ID and marks it used.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if ok {
		session.lastUsed = time.Now()
	}
	return session, ok
}

// Destroy removes a session. It reports whether the session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions that haven't been used within the TTL.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, session := range s.sessions {
		if session.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Infof("swept %d idle sessions", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *SessionStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
