// Package store provides persistence for sessions and the trade journal.
package store

import "hoodview/internal/domain"

// SessionStore is the key/value contract the session manager needs: one
// session per user id. Implementations do not interpret expiry; the session
// manager owns that logic.
type SessionStore interface {
	// Get returns the stored session for userID, or ok=false when none
	// exists.
	Get(userID string) (domain.Session, bool, error)
	// Set stores the session for userID, replacing any existing one.
	Set(userID string, s domain.Session) error
	// Clear removes the session for userID. Clearing an absent session is
	// not an error.
	Clear(userID string) error
}
