// Package persist implements the persistence collaborator: an opaque
// byte-oriented key/value contract the pipeline uses for conversation
// history, learned vocabulary and learning counters.
package persist

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Load when a key has never been saved.
var ErrNotFound = errors.New("persist: key not found")

// Well-known persistence keys.
const (
	KeyConversation = "conversation_history"
	KeyVocabulary   = "learned_vocabulary"
	KeyCounters     = "learning_counters"
)

// Store is the persistence contract. Implementations must treat values as
// opaque bytes; interpreting (and discarding corrupt) payloads is the
// caller's concern.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}

// Memory is the in-process Store used for tests and single-session runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load returns the saved value for key, or ErrNotFound.
func (m *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

// Save stores value under key.
func (m *Memory) Save(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = cp
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
