package sflvault

import (
	"sync"
	"time"
)

// AuthState is where a session is in the challenge-response exchange.
type AuthState int

// Authentication states. A transport failure leaves the session
// unauthenticated. StateRejected and StateAborted are terminal for
// the attempt that reached them; the next protected call starts over.
const (
	StateUnauthenticated AuthState = iota
	StateChallengeIssued
	StateAuthenticated
	StateRejected
	StateAborted
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateChallengeIssued:
		return "challenge issued"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Session holds the vault session for one identity. The token is opaque
// and only forwarded.
type Session struct {
	username string
	lifetime time.Duration
	now      func() time.Time

	// login serializes authentication so only one login runs at a time.
	login sync.Mutex

	mu       sync.RWMutex
	token    string
	acquired time.Time
	state    AuthState
}

func newSession(username string, lifetime time.Duration) *Session {
	return &Session{username: username, lifetime: lifetime, now: time.Now}
}

// Username returns the session's user.
func (s *Session) Username() string {
	return s.username
}

// State returns the current authentication state.
func (s *Session) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticated reports whether a usable token is held.
func (s *Session) Authenticated() bool {
	_, ok := s.validToken()
	return ok
}

// validToken returns the token if one is held and not stale.
func (s *Session) validToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", false
	}
	if s.lifetime > 0 && s.now().Sub(s.acquired) >= s.lifetime {
		return "", false
	}
	return s.token, true
}

func (s *Session) setState(state AuthState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) store(token string) {
	s.mu.Lock()
	s.token = token
	s.acquired = s.now()
	s.state = StateAuthenticated
	s.mu.Unlock()
}

// drop discards token if it is still the current one.
func (s *Session) drop(token string) {
	s.mu.Lock()
	if s.token == token {
		s.token = ""
		s.acquired = time.Time{}
		s.state = StateUnauthenticated
	}
	s.mu.Unlock()
}

func (s *Session) clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.token = ""
	s.acquired = time.Time{}
	s.state = StateUnauthenticated
	s.mu.Unlock()
}
