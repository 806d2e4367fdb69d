package kvstore

import (
	"context"
	"iter"
)

// Store defines the interface shared by every adapter and by the Transformer.
// Keys and values are scalars (string or []byte) unless a codec in front of the
// store knows how to serialize something richer.
type Store interface {
	// Store inserts or overwrites the entry for key.
	Store(ctx context.Context, key, value any) error
	// Load returns the value for key. A missing key is reported through found,
	// never as an error.
	Load(ctx context.Context, key any) (value any, found bool, err error)
	// Delete removes key and returns the value it held, if any.
	Delete(ctx context.Context, key any) (value any, found bool, err error)
	// Keys returns a lazy sequence over the live keys. Every range over it
	// walks the store again.
	Keys(ctx context.Context) iter.Seq2[any, error]
	// EachKey calls fn once per live key and returns the store itself.
	EachKey(ctx context.Context, fn func(key any)) (Store, error)
	Close() error
}

// Backend is the primitive, byte-oriented contract of a storage engine.
type Backend interface {
	Get(key []byte) (value []byte, found bool, err error)
	Set(key, value []byte) error
	Delete(key []byte) (old []byte, found bool, err error)
	Close() error
}

// KeyWalker is implemented by backends that can iterate their keys natively.
// The walk stops early when fn returns false. Keys handed to fn must not be
// retained by the backend afterwards.
type KeyWalker interface {
	WalkKeys(fn func(key []byte) bool) error
}

// Inverter is implemented by stores that can hand back encoded keys or values
// because a one-way codec sits somewhere below them.
type Inverter interface {
	KeysInvertible() bool
	ValuesInvertible() bool
}

// KeysInvertible reports whether keys enumerated from s address the entries
// they came from. Stores that are not Inverters always do.
func KeysInvertible(s Store) bool {
	inv, ok := s.(Inverter)
	return !ok || inv.KeysInvertible()
}

// ValuesInvertible reports whether Load on s returns values as they were
// stored. Stores that are not Inverters always do.
func ValuesInvertible(s Store) bool {
	inv, ok := s.(Inverter)
	return !ok || inv.ValuesInvertible()
}
