package kvstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend implements persistent storage using BadgerDB
type BadgerBackend struct {
	db *badger.DB
}

var (
	_ Backend   = (*BadgerBackend)(nil)
	_ KeyWalker = (*BadgerBackend)(nil)
)

// NewBadgerBackend opens a BadgerDB-backed store in path. An empty path opens
// an in-memory database.
func NewBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable Badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerBackend{
		db: db,
	}, nil
}

// Set stores a value for a key
func (s *BadgerBackend) Set(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Get retrieves a value by key. Presence comes from the item lookup, not
// from the value, so empty values are found.
func (s *BadgerBackend) Get(key []byte) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return value, found, nil
}

// Delete removes a key in the same transaction that reads its old value
func (s *BadgerBackend) Delete(key []byte) ([]byte, bool, error) {
	var (
		old   []byte
		found bool
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if old, err = item.ValueCopy(nil); err != nil {
			return err
		}
		found = true
		return txn.Delete(key)
	})
	if err != nil {
		return nil, false, err
	}
	return old, found, nil
}

// Close closes the database
func (s *BadgerBackend) Close() error {
	return s.db.Close()
}

// WalkKeys iterates keys inside one read transaction, so the walk sees a
// consistent snapshot.
func (s *BadgerBackend) WalkKeys(fn func(key []byte) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if !fn(it.Item().KeyCopy(nil)) {
				return nil
			}
		}
		return nil
	})
}
