package kvstore

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// AdapterStore lifts a Backend to the Store contract. Keys and values must be
// scalars; Load and Delete hand values back as []byte.
//
// Backends that cannot walk their keys get a key index maintained here on
// every Store and Delete. The index only knows about keys written through this
// AdapterStore.
type AdapterStore struct {
	backend Backend
	index   *keyIndex
	closed  atomic.Bool
	enum    enumerator
}

var _ Store = (*AdapterStore)(nil)

// Adapt wraps backend. The returned store owns backend and closes it once.
func Adapt(backend Backend) *AdapterStore {
	s := &AdapterStore{backend: backend}
	if walker, ok := backend.(KeyWalker); ok {
		s.enum = enumerator{walk: nativeWalk(walker), decode: rawString}
	} else {
		s.index = newKeyIndex()
		s.enum = enumerator{walk: s.index.walk, decode: rawString}
	}
	return s
}

// Backend returns the wrapped engine.
func (s *AdapterStore) Backend() Backend {
	return s.backend
}

func scalar(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, &typeError{v: v}
	}
}

// Store implements Store.
func (s *AdapterStore) Store(ctx context.Context, key, value any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	k, err := scalar(key)
	if err != nil {
		return err
	}
	v, err := scalar(value)
	if err != nil {
		return err
	}

	if s.index == nil {
		return s.backend.Set(k, v)
	}
	s.index.mu.Lock()
	defer s.index.mu.Unlock()
	if err := s.backend.Set(k, v); err != nil {
		return err
	}
	s.index.keys[string(k)] = struct{}{}
	return nil
}

// Load implements Store.
func (s *AdapterStore) Load(ctx context.Context, key any) (any, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	k, err := scalar(key)
	if err != nil {
		return nil, false, err
	}
	v, found, err := s.backend.Get(k)
	if err != nil || !found {
		return nil, false, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, true, nil
}

// Delete implements Store.
func (s *AdapterStore) Delete(ctx context.Context, key any) (any, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	k, err := scalar(key)
	if err != nil {
		return nil, false, err
	}

	if s.index != nil {
		s.index.mu.Lock()
		defer s.index.mu.Unlock()
	}
	old, found, err := s.backend.Delete(k)
	if err != nil || !found {
		return nil, false, err
	}
	if s.index != nil {
		delete(s.index.keys, string(k))
	}
	if old == nil {
		old = []byte{}
	}
	return old, true, nil
}

// Keys implements Store. Keys come back as strings.
// Closing the store fails later ranges over a sequence obtained earlier.
func (s *AdapterStore) Keys(ctx context.Context) iter.Seq2[any, error] {
	seq := s.enum.keys(ctx)
	return func(yield func(any, error) bool) {
		if s.closed.Load() {
			closedKeys(yield)
			return
		}
		seq(yield)
	}
}

// EachKey implements Store.
func (s *AdapterStore) EachKey(ctx context.Context, fn func(key any)) (Store, error) {
	return each(ctx, s, s.Keys(ctx), fn)
}

// Close closes the backend the first time it is called.
func (s *AdapterStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.backend.Close()
}

func nativeWalk(w KeyWalker) walkFunc {
	return func(ctx context.Context, yield func(raw []byte) bool) error {
		return w.WalkKeys(yield)
	}
}

// keyIndex tracks live keys for backends without native iteration.
type keyIndex struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newKeyIndex() *keyIndex {
	return &keyIndex{keys: make(map[string]struct{})}
}

// walk copies the index first so fn may write to the store.
func (i *keyIndex) walk(ctx context.Context, yield func(raw []byte) bool) error {
	i.mu.Lock()
	keys := make([]string, 0, len(i.keys))
	for k := range i.keys {
		keys = append(keys, k)
	}
	i.mu.Unlock()

	for _, k := range keys {
		if !yield([]byte(k)) {
			return nil
		}
	}
	return nil
}
