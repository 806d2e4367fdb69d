package kvstore

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var (
	levelWriteOpt = opt.WriteOptions{Sync: true}
	levelReadOpt  = opt.ReadOptions{}
	levelScanOpt  = opt.ReadOptions{DontFillCache: true}
)

// LevelBackend wraps a goleveldb instance.
type LevelBackend struct {
	db *leveldb.DB
}

var (
	_ Backend   = (*LevelBackend)(nil)
	_ KeyWalker = (*LevelBackend)(nil)
)

// NewLevelBackend opens a leveldb database in path. An empty path keeps the
// database in memory.
func NewLevelBackend(path string) (*LevelBackend, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb database: %w", err)
	}
	return &LevelBackend{db}, nil
}

func (l *LevelBackend) Get(key []byte) ([]byte, bool, error) {
	v, err := l.db.Get(key, &levelReadOpt)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (l *LevelBackend) Set(key, value []byte) error {
	return l.db.Put(key, value, &levelWriteOpt)
}

// Delete reads then deletes; the two steps are not atomic.
func (l *LevelBackend) Delete(key []byte) ([]byte, bool, error) {
	old, found, err := l.Get(key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := l.db.Delete(key, &levelWriteOpt); err != nil {
		return nil, false, err
	}
	return old, true, nil
}

// WalkKeys iterates over the iterator's implicit snapshot.
func (l *LevelBackend) WalkKeys(fn func(key []byte) bool) error {
	it := l.db.NewIterator(nil, &levelScanOpt)
	defer it.Release()

	for it.Next() {
		if !fn(append([]byte{}, it.Key()...)) {
			break
		}
	}
	return it.Error()
}

func (l *LevelBackend) Close() error {
	return l.db.Close()
}
