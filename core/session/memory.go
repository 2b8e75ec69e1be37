package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation. Suitable for tests and
// single-instance deployments; everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Get returns the stored session for a key, or ErrNotFound.
func (ms *MemoryStore) Get(_ context.Context, key string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	sess, ok := ms.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Upsert stores a copy of the session under its key.
func (ms *MemoryStore) Upsert(_ context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	ms.sessions[sess.Key] = *sess
	ms.mu.Unlock()
	return nil
}

// Delete removes the session for a key. Deleting a missing key is not an error.
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.sessions, key)
	ms.mu.Unlock()
	return nil
}
