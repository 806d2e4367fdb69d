package kvstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/akrylysov/pogreb"
)

// PogrebBackend wraps a pogreb hash-indexed log.
type PogrebBackend struct {
	db *pogreb.DB
}

var (
	_ Backend   = (*PogrebBackend)(nil)
	_ KeyWalker = (*PogrebBackend)(nil)
)

// NewPogrebBackend opens a pogreb database in path.
func NewPogrebBackend(path string) (*PogrebBackend, error) {
	db, err := pogreb.Open(path, &pogreb.Options{BackgroundSyncInterval: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open pogreb database: %w", err)
	}
	return &PogrebBackend{db: db}, nil
}

// Get uses Has for presence because pogreb returns nil for both a missing key
// and an empty value.
func (pdb *PogrebBackend) Get(key []byte) ([]byte, bool, error) {
	v, err := pdb.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	if v != nil {
		return v, true, nil
	}
	found, err := pdb.db.Has(key)
	if err != nil || !found {
		return nil, false, err
	}
	return []byte{}, true, nil
}

func (pdb *PogrebBackend) Set(key, value []byte) error {
	return pdb.db.Put(key, value)
}

func (pdb *PogrebBackend) Delete(key []byte) ([]byte, bool, error) {
	old, found, err := pdb.Get(key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := pdb.db.Delete(key); err != nil {
		return nil, false, err
	}
	return old, true, nil
}

// WalkKeys collects keys before calling fn; pogreb's item iterator holds
// index locks between calls to Next.
func (pdb *PogrebBackend) WalkKeys(fn func(key []byte) bool) error {
	var keys [][]byte
	it := pdb.db.Items()
	for {
		key, _, err := it.Next()
		if errors.Is(err, pogreb.ErrIterationDone) {
			break
		}
		if err != nil {
			return err
		}
		keys = append(keys, append([]byte{}, key...))
	}
	for _, k := range keys {
		if !fn(k) {
			return nil
		}
	}
	return nil
}

func (pdb *PogrebBackend) Close() error {
	return pdb.db.Close()
}
