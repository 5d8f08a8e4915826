// Package auth implements the login protocol against the broker: device
// identity, challenge resolution, the login state machine, and session
// lifecycle.
package auth

import (
	"sync"

	"github.com/google/uuid"
)

// DeviceRegistry hands out per-user device tokens. The broker's
// device-verification system only recognizes repeated login attempts as one
// device if every attempt presents the same token, so the token must be
// stable across all attempts of one flow. Tokens live in process memory
// only; losing them on restart just starts a new device identity.
type DeviceRegistry struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewDeviceRegistry creates an empty DeviceRegistry.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{tokens: make(map[string]string)}
}

// GetOrCreate returns the user's device token, minting one on first use.
// Idempotent within a login flow: consecutive calls return the same token
// until Clear or Reset.
func (r *DeviceRegistry) GetOrCreate(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tok, ok := r.tokens[userID]; ok {
		return tok
	}
	tok := uuid.NewString()
	r.tokens[userID] = tok
	return tok
}

// Clear forgets the user's device token. Called after a successful login or
// an explicit logout.
func (r *DeviceRegistry) Clear(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userID)
}

// Reset forgets the user's device token so the next attempt presents a new
// device identity, forcing the broker to issue a brand-new verification
// challenge. Used when a prior approval prompt stalled or expired.
func (r *DeviceRegistry) Reset(userID string) {
	r.Clear(userID)
}
