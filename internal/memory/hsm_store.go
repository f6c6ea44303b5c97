package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type hsmKey struct {
	userID uuid.UUID
	name   string
}

// HSMStore is a mutex-guarded map standing in for a real HSM or
// dedicated transient-state store. Callers use exactly three key
// names across the lifetime of a user's enrollment flows.
type HSMStore struct {
	mu    sync.RWMutex
	store map[hsmKey]string
}

// NewHSMStore returns an empty HSMStore.
func NewHSMStore() *HSMStore {
	return &HSMStore{
		store: make(map[hsmKey]string),
	}
}

// Get returns the stored value and whether an entry is present. A
// present entry holding the empty string is distinct from an absent
// one; Get reports that distinction via ok.
func (s *HSMStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.store[hsmKey{userID: userID, name: key}]
	return v, ok, nil
}

// Set stores a value, replacing any prior entry for the same key.
func (s *HSMStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[hsmKey{userID: userID, name: key}] = value
	return nil
}
