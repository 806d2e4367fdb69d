package kvstore

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUBackend is a bounded in-memory backend. Once size entries are live the
// least recently used one is evicted, so keys can vanish without a Delete.
type LRUBackend struct {
	cache *lru.Cache[string, []byte]
}

var (
	_ Backend   = (*LRUBackend)(nil)
	_ KeyWalker = (*LRUBackend)(nil)
)

// NewLRUBackend creates an LRU backend holding at most size entries.
func NewLRUBackend(size int) (*LRUBackend, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRUBackend{cache: cache}, nil
}

func (b *LRUBackend) Get(key []byte) ([]byte, bool, error) {
	v, ok := b.cache.Get(string(key))
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (b *LRUBackend) Set(key, value []byte) error {
	b.cache.Add(string(key), append([]byte{}, value...))
	return nil
}

func (b *LRUBackend) Delete(key []byte) ([]byte, bool, error) {
	v, ok := b.cache.Peek(string(key))
	if !ok {
		return nil, false, nil
	}
	b.cache.Remove(string(key))
	return v, true, nil
}

// WalkKeys walks a copy of the keys, oldest first.
func (b *LRUBackend) WalkKeys(fn func(key []byte) bool) error {
	for _, k := range b.cache.Keys() {
		if !fn([]byte(k)) {
			return nil
		}
	}
	return nil
}

func (b *LRUBackend) Close() error {
	b.cache.Purge()
	return nil
}
