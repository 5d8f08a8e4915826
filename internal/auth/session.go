package auth

import (
	"errors"
	"log/slog"
	"sync"

	"hoodview/internal/domain"
	"hoodview/internal/store"
	"hoodview/internal/util"
)

// ErrNotConnected signals that a user has no valid session. Authenticated
// operations check this first instead of letting an upstream 401 surface.
var ErrNotConnected = errors.New("not connected to brokerage")

// Sessions owns the session record's lifecycle. It is the only component
// that reads or writes the underlying store; an expired session is treated
// identically to no session and purged on the read that observes it. All
// operations for one user are serialized: the check-then-purge inside Get
// must not race a concurrent login's Set, or the purge would delete the
// freshly stored session.
type Sessions struct {
	store store.SessionStore
	clock util.Clock
	log   *slog.Logger

	mu     sync.Mutex
	userMu map[string]*sync.Mutex
}

// NewSessions creates a session manager over the given store.
func NewSessions(st store.SessionStore, clock util.Clock) *Sessions {
	return &Sessions{
		store:  st,
		clock:  clock,
		log:    slog.Default().With("component", "sessions"),
		userMu: make(map[string]*sync.Mutex),
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (s *Sessions) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.userMu[userID]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.userMu[userID] = m
	return m
}

// Get returns the user's session if one exists and has not expired. An
// expired record is purged before reporting absence.
func (s *Sessions) Get(userID string) (domain.Session, bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok, err := s.store.Get(userID)
	if err != nil {
		return domain.Session{}, false, err
	}
	if !ok {
		return domain.Session{}, false, nil
	}
	if !sess.ValidAt(s.clock.Now()) {
		if err := s.store.Clear(userID); err != nil {
			s.log.Warn("purging expired session", "user", userID, "err", err)
		}
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

// Set stores the session for userID, replacing any existing one.
func (s *Sessions) Set(userID string, sess domain.Session) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.store.Set(userID, sess)
}

// Clear removes the session for userID.
func (s *Sessions) Clear(userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.store.Clear(userID)
}

// Status returns the externally visible connection state for a user.
func (s *Sessions) Status(userID string) domain.ConnectionStatus {
	sess, ok, err := s.Get(userID)
	if err != nil {
		s.log.Warn("reading session for status", "user", userID, "err", err)
		return domain.ConnectionStatus{Connected: false}
	}
	if !ok {
		return domain.ConnectionStatus{Connected: false}
	}
	expires := sess.ExpiresAt
	return domain.ConnectionStatus{Connected: true, ExpiresAt: &expires}
}
