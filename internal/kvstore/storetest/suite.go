// Package storetest holds the behaviour every kvstore.Store must show, bare
// adapter or Transformer alike. Adapter and transformer tests run it against
// each implementation.
package storetest

import (
	"context"
	"iter"
	"slices"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/kvstore"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) kvstore.Store

// Config adjusts the suite to stores that cannot give back what they were given.
type Config struct {
	// KeyView maps a logical key to what enumeration yields for it. Nil means
	// the key comes back unchanged.
	KeyView func(key string) string
	// OneWayValues checks that loads are stable instead of equal to the input.
	OneWayValues bool
}

func (c Config) view(keys ...string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if c.KeyView != nil {
			k = c.KeyView(k)
		}
		out[i] = k
	}
	slices.Sort(out)
	return out
}

// Text turns a scalar into a string for comparison.
func Text(t *testing.T, v any) string {
	t.Helper()
	b, err := codec.Bytes(v)
	must.NoError(t, err)
	return string(b)
}

// Collect ranges over seq and returns the keys as sorted strings.
func Collect(t *testing.T, seq iter.Seq2[any, error]) []string {
	t.Helper()
	keys := []string{}
	for k, err := range seq {
		must.NoError(t, err)
		keys = append(keys, Text(t, k))
	}
	slices.Sort(keys)
	return keys
}

// CollectEach gathers keys through the consumer convention.
func CollectEach(t *testing.T, s kvstore.Store) []string {
	t.Helper()
	keys := []string{}
	self, err := s.EachKey(context.Background(), func(k any) {
		keys = append(keys, Text(t, k))
	})
	must.NoError(t, err)
	must.True(t, s == self)
	slices.Sort(keys)
	return keys
}

// Run exercises the store contract.
func Run(t *testing.T, newStore Factory, cfg Config) {
	t.Helper()

	open := func(t *testing.T) kvstore.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	conventions := map[string]func(t *testing.T, s kvstore.Store) []string{
		"sequence": func(t *testing.T, s kvstore.Store) []string {
			return Collect(t, s.Keys(t.Context()))
		},
		"consumer": CollectEach,
	}

	for name, keys := range conventions {
		t.Run(name, func(t *testing.T) {
			t.Run("empty store has no keys", func(t *testing.T) {
				s := open(t)
				must.SliceEmpty(t, keys(t, s))
			})

			t.Run("stored keys are enumerated", func(t *testing.T) {
				s := open(t)
				must.NoError(t, s.Store(t.Context(), "1st_key", "value"))
				must.Eq(t, cfg.view("1st_key"), keys(t, s))

				must.NoError(t, s.Store(t.Context(), "2nd_key", "value"))
				must.Eq(t, cfg.view("1st_key", "2nd_key"), keys(t, s))
			})

			t.Run("overwrite does not duplicate", func(t *testing.T) {
				s := open(t)
				for _, v := range []string{"0_val", "1_val"} {
					must.NoError(t, s.Store(t.Context(), "a_key", v))
				}
				must.Eq(t, cfg.view("a_key"), keys(t, s))
			})

			t.Run("deleted keys are not enumerated", func(t *testing.T) {
				s := open(t)
				must.NoError(t, s.Store(t.Context(), "a_key", "a_val"))
				must.NoError(t, s.Store(t.Context(), "b_key", "b_val"))
				must.Eq(t, cfg.view("a_key", "b_key"), keys(t, s))

				_, found, err := s.Delete(t.Context(), "a_key")
				must.NoError(t, err)
				must.True(t, found)
				must.Eq(t, cfg.view("b_key"), keys(t, s))
			})
		})
	}

	t.Run("conventions agree", func(t *testing.T) {
		s := open(t)
		for _, k := range []string{"x", "y", "z"} {
			must.NoError(t, s.Store(t.Context(), k, "v"))
		}
		must.Eq(t, Collect(t, s.Keys(t.Context())), CollectEach(t, s))
	})

	t.Run("consumer sees each key once and chains", func(t *testing.T) {
		s := open(t)
		want := map[string]bool{}
		for _, k := range cfg.view("key_0", "key_1") {
			want[k] = true
		}
		for _, k := range []string{"key_0", "key_1"} {
			must.NoError(t, s.Store(t.Context(), k, k+"_val"))
		}

		first, err := s.EachKey(t.Context(), func(k any) {
			name := Text(t, k)
			must.True(t, want[name])
			delete(want, name)
		})
		must.NoError(t, err)
		must.True(t, s == first)
		must.Eq(t, 0, len(want))

		calls := 0
		second, err := first.EachKey(t.Context(), func(any) { calls++ })
		must.NoError(t, err)
		must.True(t, s == second)
		must.Eq(t, 2, calls)
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		s := open(t)
		seq := s.Keys(t.Context())
		must.SliceEmpty(t, Collect(t, seq))

		must.NoError(t, s.Store(t.Context(), "later", "v"))
		must.Eq(t, cfg.view("later"), Collect(t, seq))
		must.Eq(t, cfg.view("later"), Collect(t, seq))
	})

	t.Run("sequence stops early", func(t *testing.T) {
		s := open(t)
		for _, k := range []string{"a", "b", "c"} {
			must.NoError(t, s.Store(t.Context(), k, "v"))
		}
		n := 0
		for _, err := range s.Keys(t.Context()) {
			must.NoError(t, err)
			n++
			break
		}
		must.Eq(t, 1, n)
	})

	t.Run("load and delete", func(t *testing.T) {
		s := open(t)
		_, found, err := s.Load(t.Context(), "a")
		must.NoError(t, err)
		must.False(t, found)

		must.NoError(t, s.Store(t.Context(), "a", "x"))
		must.NoError(t, s.Store(t.Context(), "b", "y"))
		must.Eq(t, cfg.view("a", "b"), Collect(t, s.Keys(t.Context())))

		first, found, err := s.Load(t.Context(), "b")
		must.NoError(t, err)
		must.True(t, found)
		again, _, err := s.Load(t.Context(), "b")
		must.NoError(t, err)
		must.Eq(t, Text(t, first), Text(t, again))
		if !cfg.OneWayValues {
			must.Eq(t, "y", Text(t, first))
		}

		removed, found, err := s.Delete(t.Context(), "a")
		must.NoError(t, err)
		must.True(t, found)
		if !cfg.OneWayValues {
			must.Eq(t, "x", Text(t, removed))
		}
		must.Eq(t, cfg.view("b"), Collect(t, s.Keys(t.Context())))

		_, found, err = s.Load(t.Context(), "a")
		must.NoError(t, err)
		must.False(t, found)

		_, found, err = s.Delete(t.Context(), "a")
		must.NoError(t, err)
		must.False(t, found)
		must.Eq(t, cfg.view("b"), Collect(t, s.Keys(t.Context())))
	})

	t.Run("empty value is present", func(t *testing.T) {
		s := open(t)
		must.NoError(t, s.Store(t.Context(), "blank", ""))
		v, found, err := s.Load(t.Context(), "blank")
		must.NoError(t, err)
		must.True(t, found)
		if !cfg.OneWayValues {
			must.Eq(t, "", Text(t, v))
		}
		must.Eq(t, cfg.view("blank"), Collect(t, s.Keys(t.Context())))
	})

	t.Run("loaded values are copies", func(t *testing.T) {
		s := open(t)
		must.NoError(t, s.Store(t.Context(), "k", "value"))

		first, found, err := s.Load(t.Context(), "k")
		must.NoError(t, err)
		must.True(t, found)
		want := Text(t, first)
		if b, ok := first.([]byte); ok && len(b) > 0 {
			b[0] = 'X'
		}

		again, _, err := s.Load(t.Context(), "k")
		must.NoError(t, err)
		must.Eq(t, want, Text(t, again))
	})

	t.Run("closed store", func(t *testing.T) {
		s := newStore(t)
		must.NoError(t, s.Store(t.Context(), "k", "v"))
		seq := s.Keys(t.Context())
		must.NoError(t, s.Close())

		ranged := 0
		for _, err := range seq {
			must.ErrorIs(t, err, kvstore.ErrClosed)
			ranged++
		}
		must.Eq(t, 1, ranged)

		must.ErrorIs(t, s.Store(t.Context(), "k", "v"), kvstore.ErrClosed)
		_, _, err := s.Load(t.Context(), "k")
		must.ErrorIs(t, err, kvstore.ErrClosed)
		_, _, err = s.Delete(t.Context(), "k")
		must.ErrorIs(t, err, kvstore.ErrClosed)
		_, err = s.EachKey(t.Context(), func(any) {})
		must.ErrorIs(t, err, kvstore.ErrClosed)
		must.ErrorIs(t, s.Close(), kvstore.ErrClosed)
	})
}
