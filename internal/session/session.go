// Package session holds the access context passed explicitly to every
// pipeline operation. A session is either Anonymous or bound to exactly one
// authenticated principal; only login and logout mutate it.
package session

import (
	"sync"

	"marketplace/internal/domain"
)

// Session is the caller-supplied access context. The zero value is not
// usable; construct with New. Concurrent logins on the same session
// serialize, and subsequent reads observe the last write.
type Session struct {
	mu   sync.RWMutex
	user *domain.User
}

// New returns an Anonymous session.
func New() *Session {
	return &Session{}
}

// Current returns the authenticated principal, or nil when Anonymous. The
// returned value is a read view; callers must not mutate it.
func (s *Session) Current() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// CurrentID returns the principal's identity, or nil when Anonymous.
func (s *Session) CurrentID() *int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	id := s.user.ID
	return &id
}

// IsAuthenticated reports whether a principal is bound.
func (s *Session) IsAuthenticated() bool {
	return s.Current() != nil
}

// IsAdmin reports whether the bound principal carries the ADMIN role.
func (s *Session) IsAdmin() bool {
	return s.Current().IsAdmin()
}

// Bind transitions the session to Authenticated(user). Reserved for the auth
// service's login path.
func (s *Session) Bind(user *domain.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

// Clear transitions the session back to Anonymous. Reserved for the auth
// service's logout path.
func (s *Session) Clear() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}
