package kvstore

import (
	"errors"

	"github.com/coocood/freecache"
)

// FreecacheBackend stores entries in a fixed-size freecache arena. Like the
// LRU backend it may evict entries when full.
type FreecacheBackend struct {
	cache *freecache.Cache
}

var (
	_ Backend   = (*FreecacheBackend)(nil)
	_ KeyWalker = (*FreecacheBackend)(nil)
)

// NewFreecacheBackend allocates a cache of size bytes (minimum 512KiB).
func NewFreecacheBackend(size int) *FreecacheBackend {
	return &FreecacheBackend{cache: freecache.NewCache(size)}
}

func (b *FreecacheBackend) Get(key []byte) ([]byte, bool, error) {
	v, err := b.cache.Get(key)
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *FreecacheBackend) Set(key, value []byte) error {
	return b.cache.Set(key, value, 0)
}

func (b *FreecacheBackend) Delete(key []byte) ([]byte, bool, error) {
	old, found, err := b.Get(key)
	if err != nil || !found {
		return nil, false, err
	}
	b.cache.Del(key)
	return old, true, nil
}

// WalkKeys collects keys first; the iterator locks one segment per step.
func (b *FreecacheBackend) WalkKeys(fn func(key []byte) bool) error {
	var keys [][]byte
	it := b.cache.NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		keys = append(keys, entry.Key)
	}
	for _, k := range keys {
		if !fn(k) {
			return nil
		}
	}
	return nil
}

func (b *FreecacheBackend) Close() error {
	b.cache.Clear()
	return nil
}
