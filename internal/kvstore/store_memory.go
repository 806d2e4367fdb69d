package kvstore

import (
	"sync"
)

// MemoryBackend implements in-memory key-value storage
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ Backend   = (*MemoryBackend)(nil)
	_ KeyWalker = (*MemoryBackend)(nil)
)

// NewMemoryBackend creates a new instance of MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string][]byte),
	}
}

// NewMemoryStore is shorthand for Adapt(NewMemoryBackend()).
func NewMemoryStore() *AdapterStore {
	return Adapt(NewMemoryBackend())
}

// Set stores a copy of value for key
func (s *MemoryBackend) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[string(key)] = append([]byte{}, value...)
	return nil
}

// Get retrieves a copy of the value stored for key
func (s *MemoryBackend) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, exists := s.data[string(key)]
	if !exists {
		return nil, false, nil
	}
	return append([]byte{}, val...), true, nil
}

// Delete removes a key and returns its previous value
func (s *MemoryBackend) Delete(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, exists := s.data[string(key)]
	delete(s.data, string(key))
	return val, exists, nil
}

// Close implements Backend
func (s *MemoryBackend) Close() error {
	return nil
}

// WalkKeys copies the key set before calling fn so fn may write to the backend.
func (s *MemoryBackend) WalkKeys(fn func(key []byte) bool) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	for _, k := range keys {
		if !fn([]byte(k)) {
			return nil
		}
	}
	return nil
}
