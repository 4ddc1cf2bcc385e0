package storage

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is a map-backed Backend for tests and sessions without a
// durable store.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: map[string]string{}}
}

func (b *MemoryBackend) GetItem(key string) (string, bool, error) {
	b.mu.RLock()
	v, ok := b.items[key]
	b.mu.RUnlock()
	return v, ok, nil
}

func (b *MemoryBackend) SetItem(key, value string) error {
	b.mu.Lock()
	b.items[key] = value
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) RemoveItem(key string) error {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Keys() ([]string, error) {
	b.mu.RLock()
	keys := make([]string, 0, len(b.items))
	for k := range b.items {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// DisabledBackend fails every operation with ErrUnavailable. It stands in for
// a store that could not be opened so the application can run in memory.
type DisabledBackend struct {
	Cause error
}

func (b DisabledBackend) err() error {
	if b.Cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, b.Cause)
}

func (b DisabledBackend) GetItem(string) (string, bool, error) { return "", false, b.err() }
func (b DisabledBackend) SetItem(string, string) error         { return b.err() }
func (b DisabledBackend) RemoveItem(string) error              { return b.err() }
func (b DisabledBackend) Keys() ([]string, error)              { return nil, b.err() }
