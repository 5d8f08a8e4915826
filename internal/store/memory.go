package store

import (
	"sync"

	"hoodview/internal/domain"
)

// Compile-time interface check.
var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore is the default SessionStore: sessions live in process memory
// and are lost on restart, which only costs users a re-login.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session)}
}

// Get returns the stored session for userID.
func (m *MemoryStore) Get(userID string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok, nil
}

// Set stores the session for userID, replacing any existing one.
func (m *MemoryStore) Set(userID string, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return nil
}

// Clear removes the session for userID.
func (m *MemoryStore) Clear(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
