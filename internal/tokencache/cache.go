package tokencache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get when no live entry exists for the key.
var ErrMiss = errors.New("token cache miss")

// Cache stores access tokens keyed by credential identity.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

type entry struct {
	value   string
	expires time.Time
}

// Memory is an in-process Cache. Entries expire lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrMiss
	}
	if !m.now().Before(e.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", ErrMiss
	}
	return e.value, nil
}

// Set implements Cache. A non-positive ttl is ignored.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expires: m.now().Add(ttl)}
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
