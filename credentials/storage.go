package credentials

import (
	"context"
	"sync"
)

// Storage is a secure key-value store for opaque blobs, typically backed by
// an OS keychain. Keychain adapters live outside this package; the in-memory
// implementation below serves tests and short-lived processes.
type Storage interface {
	// Get returns the blob for key, or false when no record exists.
	Get(key string) ([]byte, bool)

	// Set writes the blob for key, replacing any prior record.
	Set(key string, value []byte) error

	// Delete removes the record for key. Deleting an absent record is not an
	// error.
	Delete(key string) error
}

// Gate guards credential access behind a user-presence check, typically a
// biometric prompt. Evaluation is user-driven and may block until the prompt
// resolves.
type Gate interface {
	Evaluate(ctx context.Context) error
}

// InMemoryStorage is a Storage held in process memory.
type InMemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ Storage = (*InMemoryStorage)(nil)

// NewInMemoryStorage creates an empty in-memory store.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{records: map[string][]byte{}}
}

func (s *InMemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[key]
	return value, ok
}

func (s *InMemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value
	return nil
}

func (s *InMemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
