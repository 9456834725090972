package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process memory. It is the fallback when
// no durable medium is usable and the default in tests.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// SetPair writes both entries under one lock so readers never observe a
// token without its user.
func (m *MemoryBackend) SetPair(_ context.Context, tokenKey, token, userKey, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[tokenKey] = token
	m.data[userKey] = user
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
