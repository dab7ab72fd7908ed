package kvstore

import (
	"context"
	"errors"
	"sync"
)

// Keys for the durable slots shared across page loads. Readers always
// re-fetch from the store rather than holding an in-memory copy.
const (
	KeySessionID     = "onboarding:session_id"
	KeyBearerToken   = "onboarding:bearer_token"
	KeyNotifications = "onboarding:notifications"
)

// ErrKeyNotFound is returned when a slot has no value.
var ErrKeyNotFound = errors.New("key not found")

// Store is the small storage adapter behind the durable key-value slots, so
// the mechanism is swappable and testable.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore is the in-process Store used in degraded mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
