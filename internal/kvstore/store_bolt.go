package kvstore

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("transkv")

// BoltBackend keeps every entry in a single bbolt bucket.
type BoltBackend struct {
	db *bbolt.DB
}

var (
	_ Backend   = (*BoltBackend)(nil)
	_ KeyWalker = (*BoltBackend)(nil)
)

// NewBoltBackend opens (or creates) the bbolt file at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bolt bucket: %w", err)
	}
	return &BoltBackend{db}, nil
}

// seek finds key exactly. A cursor is used instead of Bucket.Get so that an
// empty value is still reported as present.
func seek(b *bbolt.Bucket, key []byte) ([]byte, bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

func (bdb *BoltBackend) Get(key []byte) (value []byte, found bool, err error) {
	err = bdb.db.View(func(tx *bbolt.Tx) error {
		v, ok := seek(tx.Bucket(boltBucket), key)
		if ok {
			value, found = append([]byte{}, v...), true
		}
		return nil
	})
	return
}

func (bdb *BoltBackend) Set(key, value []byte) error {
	return bdb.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

func (bdb *BoltBackend) Delete(key []byte) (old []byte, found bool, err error) {
	err = bdb.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		v, ok := seek(bucket, key)
		if !ok {
			return nil
		}
		old, found = append([]byte{}, v...), true
		return bucket.Delete(key)
	})
	return
}

// WalkKeys collects the keys in one read transaction and calls fn after it
// ends, so fn may write without waiting on the open reader.
func (bdb *BoltBackend) WalkKeys(fn func(key []byte) bool) error {
	var keys [][]byte
	err := bdb.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte{}, k...))
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !fn(k) {
			return nil
		}
	}
	return nil
}

func (bdb *BoltBackend) Close() error {
	return bdb.db.Close()
}
