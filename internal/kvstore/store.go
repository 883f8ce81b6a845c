// Package kvstore provides the key/value stores the client keeps its session
// in: a persistent store for credentials and a tab-scoped store for per-run
// state such as the CSRF token.
package kvstore

import (
	"context"
	"errors"
	"sync"
)

var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

type Store interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}

// MemoryStore lives as long as the process. It backs the tab-scoped store and
// serves as the persistent store when no Redis is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]string
	maxBytes int
	size     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

// NewBoundedMemoryStore rejects writes once keys plus values exceed maxBytes.
func NewBoundedMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{items: make(map[string]string), maxBytes: maxBytes}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.size + len(key) + len(value)
	if old, ok := s.items[key]; ok {
		next -= len(key) + len(old)
	}
	if s.maxBytes > 0 && next > s.maxBytes {
		return ErrQuotaExceeded
	}

	s.items[key] = value
	s.size = next
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.items[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.items, key)
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]string)
	s.size = 0
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
