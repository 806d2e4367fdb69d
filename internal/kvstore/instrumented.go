package kvstore

import (
	"context"
	"iter"
	"time"

	"github.com/Jeanedlune/transkv/internal/metrics"
)

// Instrumented records Prometheus metrics for every call on the store it
// wraps. It adds no behaviour of its own.
type Instrumented struct {
	name  string
	inner Store
}

var (
	_ Store    = (*Instrumented)(nil)
	_ Inverter = (*Instrumented)(nil)
)

// Instrument wraps inner; name becomes the "store" label.
func Instrument(name string, inner Store) *Instrumented {
	return &Instrumented{name: name, inner: inner}
}

func (s *Instrumented) observe(op string, start time.Time, status string) {
	metrics.KVOperations.WithLabelValues(s.name, op, status).Inc()
	metrics.KVOperationDuration.WithLabelValues(s.name, op).Observe(time.Since(start).Seconds())
}

func lookupStatus(found bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case found:
		return "hit"
	default:
		return "miss"
	}
}

// Store implements Store.
func (s *Instrumented) Store(ctx context.Context, key, value any) error {
	start := time.Now()
	err := s.inner.Store(ctx, key, value)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.observe("store", start, status)
	return err
}

// Load implements Store.
func (s *Instrumented) Load(ctx context.Context, key any) (any, bool, error) {
	start := time.Now()
	v, found, err := s.inner.Load(ctx, key)
	s.observe("load", start, lookupStatus(found, err))
	return v, found, err
}

// Delete implements Store.
func (s *Instrumented) Delete(ctx context.Context, key any) (any, bool, error) {
	start := time.Now()
	v, found, err := s.inner.Delete(ctx, key)
	s.observe("delete", start, lookupStatus(found, err))
	return v, found, err
}

// Keys implements Store.
func (s *Instrumented) Keys(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		start := time.Now()
		status := "ok"
		defer func() { s.observe("keys", start, status) }()

		for k, err := range s.inner.Keys(ctx) {
			if err != nil {
				status = "error"
			} else {
				metrics.KVKeysEnumerated.WithLabelValues(s.name).Inc()
			}
			if !yield(k, err) {
				return
			}
		}
	}
}

// EachKey implements Store.
func (s *Instrumented) EachKey(ctx context.Context, fn func(key any)) (Store, error) {
	return each(ctx, s, s.Keys(ctx), fn)
}

// KeysInvertible implements Inverter for the wrapped store.
func (s *Instrumented) KeysInvertible() bool { return KeysInvertible(s.inner) }

// ValuesInvertible implements Inverter for the wrapped store.
func (s *Instrumented) ValuesInvertible() bool { return ValuesInvertible(s.inner) }

// Close implements Store.
func (s *Instrumented) Close() error {
	return s.inner.Close()
}
