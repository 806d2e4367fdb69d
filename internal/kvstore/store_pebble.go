package kvstore

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend stores entries in a Pebble LSM. Pebble can use an in-memory
// filesystem (opts.FS = vfs.NewMem()) or a directory on disk.
type PebbleBackend struct {
	db *pebble.DB
}

var (
	_ Backend   = (*PebbleBackend)(nil)
	_ KeyWalker = (*PebbleBackend)(nil)
)

// NewPebbleBackend opens a Pebble database in dirname.
func NewPebbleBackend(dirname string, opts *pebble.Options) (*PebbleBackend, error) {
	db, err := pebble.Open(dirname, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}
	return &PebbleBackend{db: db}, nil
}

func (b *PebbleBackend) Get(key []byte) ([]byte, bool, error) {
	value, closer, err := b.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	return append([]byte{}, value...), true, nil
}

func (b *PebbleBackend) Set(key, value []byte) error {
	return b.db.Set(key, value, pebble.Sync)
}

// Delete reads the old value and deletes the key in two steps; a concurrent
// writer on the same key may slip in between.
func (b *PebbleBackend) Delete(key []byte) ([]byte, bool, error) {
	old, found, err := b.Get(key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := b.db.Delete(key, pebble.Sync); err != nil {
		return nil, false, err
	}
	return old, true, nil
}

// WalkKeys iterates over an implicit snapshot taken when the iterator opens.
func (b *PebbleBackend) WalkKeys(fn func(key []byte) bool) error {
	it, err := b.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	for it.First(); it.Valid(); it.Next() {
		if !fn(append([]byte{}, it.Key()...)) {
			break
		}
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return err
	}
	return it.Close()
}

func (b *PebbleBackend) Close() error {
	return b.db.Close()
}
