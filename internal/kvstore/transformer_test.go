package kvstore_test

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/kvstore"
	"github.com/Jeanedlune/transkv/internal/kvstore/storetest"
)

func init() {
	// casefold is deliberately lossy: "Key" and "KEY" share one entry.
	codec.Register(codec.New("casefold", func(v any) ([]byte, error) {
		b, err := codec.Bytes(v)
		if err != nil {
			return nil, err
		}
		return []byte(strings.ToLower(string(b))), nil
	}, nil))
}

func newTransformer(t *testing.T, inner kvstore.Store, opts kvstore.TransformerOptions) *kvstore.Transformer {
	t.Helper()
	tr, err := kvstore.NewTransformer(inner, opts)
	must.NoError(t, err)
	return tr
}

func transformerFactory(opts kvstore.TransformerOptions) storetest.Factory {
	return func(t *testing.T) kvstore.Store {
		return newTransformer(t, kvstore.NewMemoryStore(), opts)
	}
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestTransformerTnetSuite(t *testing.T) {
	storetest.Run(t, transformerFactory(kvstore.TransformerOptions{
		Key:   []string{"tnet"},
		Value: []string{"tnet"},
	}), storetest.Config{})
}

func TestTransformerChainSuite(t *testing.T) {
	storetest.Run(t, transformerFactory(kvstore.TransformerOptions{
		Key:   []string{"msgpack", "base64"},
		Value: []string{"json", "zstd"},
	}), storetest.Config{})
}

func TestTransformerOneWayValueSuite(t *testing.T) {
	storetest.Run(t, transformerFactory(kvstore.TransformerOptions{
		Key:   []string{"tnet"},
		Value: []string{"tnet", "sha256"},
	}), storetest.Config{OneWayValues: true})
}

func TestTransformerOneWayKeySuite(t *testing.T) {
	storetest.Run(t, transformerFactory(kvstore.TransformerOptions{
		Key: []string{"md5"},
	}), storetest.Config{KeyView: md5Hex})
}

func TestNestedTransformerSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) kvstore.Store {
		inner := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
			Key:   []string{"base64"},
			Value: []string{"snappy"},
		})
		return newTransformer(t, inner, kvstore.TransformerOptions{
			Key:   []string{"json"},
			Value: []string{"yaml"},
		})
	}, storetest.Config{})
}

func TestTransformerStructuredKeysAndValues(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
		Key:   []string{"tnet"},
		Value: []string{"tnet"},
	})
	defer tr.Close()

	tests := []struct {
		name       string
		key, value any
	}{
		{"hashkey hashvalue", map[string]any{"hashkey1": "hashkey2"}, map[string]any{"hashval1": []any{"array1", int64(1)}}},
		{"hashkey stringvalue", map[string]any{"hashkey3": "hashkey4"}, "strval1"},
		{"stringkey hashvalue", "strkey1", map[string]any{"hashval3": "hashval4"}},
		{"stringkey stringvalue", "strkey2", "strval2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found, err := tr.Load(t.Context(), tt.key)
			must.NoError(t, err)
			must.False(t, found)

			must.NoError(t, tr.Store(t.Context(), tt.key, tt.value))
			got, found, err := tr.Load(t.Context(), tt.key)
			must.NoError(t, err)
			must.True(t, found)
			must.Eq(t, tt.value, got)

			keys := []any{}
			for k, err := range tr.Keys(t.Context()) {
				must.NoError(t, err)
				keys = append(keys, k)
			}
			must.Eq(t, []any{tt.key}, keys)

			removed, found, err := tr.Delete(t.Context(), tt.key)
			must.NoError(t, err)
			must.True(t, found)
			must.Eq(t, tt.value, removed)
		})
	}
}

func TestTransformerReturnsDifferentObjects(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
		Key:   []string{"tnet"},
		Value: []string{"tnet"},
	})
	defer tr.Close()

	value := map[string]any{"field": "original"}
	must.NoError(t, tr.Store(t.Context(), "k", value))
	value["field"] = "mutated"

	got, _, err := tr.Load(t.Context(), "k")
	must.NoError(t, err)
	must.Eq(t, any(map[string]any{"field": "original"}), got)

	got.(map[string]any)["field"] = "changed by caller"
	again, _, err := tr.Load(t.Context(), "k")
	must.NoError(t, err)
	must.Eq(t, any(map[string]any{"field": "original"}), again)
}

func TestTransformerNullValueIsPresent(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
		Key:   []string{"tnet"},
		Value: []string{"tnet"},
	})
	defer tr.Close()

	must.NoError(t, tr.Store(t.Context(), map[string]any{"null": "key"}, nil))
	got, found, err := tr.Load(t.Context(), map[string]any{"null": "key"})
	must.NoError(t, err)
	must.True(t, found)
	must.Nil(t, got)
}

func TestTransformerOneWayValueIsStable(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
		Value: []string{"sha256"},
	})
	defer tr.Close()

	must.NoError(t, tr.Store(t.Context(), "k", map[string]any{"field": 1}))

	first, found, err := tr.Load(t.Context(), "k")
	must.NoError(t, err)
	must.True(t, found)
	raw, ok := first.([]byte)
	must.True(t, ok)
	must.Eq(t, 64, len(raw))

	second, _, err := tr.Load(t.Context(), "k")
	must.NoError(t, err)
	must.Eq(t, first, second)
}

func TestTransformerKeyCollision(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
		Key: []string{"casefold"},
	})
	defer tr.Close()

	must.NoError(t, tr.Store(t.Context(), "Key", "first"))
	must.NoError(t, tr.Store(t.Context(), "KEY", "second"))

	must.Eq(t, []string{"key"}, storetest.Collect(t, tr.Keys(t.Context())))

	got, found, err := tr.Load(t.Context(), "Key")
	must.NoError(t, err)
	must.True(t, found)
	must.Eq(t, "second", storetest.Text(t, got))
}

func TestTransformerConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		opts   kvstore.TransformerOptions
		field  string
		target error
	}{
		{"unknown key codec", kvstore.TransformerOptions{Key: []string{"rot13"}}, "key", codec.ErrUnknownCodec},
		{"unknown value codec", kvstore.TransformerOptions{Value: []string{"json", "rot13"}}, "value", codec.ErrUnknownCodec},
		{"one-way key required invertible", kvstore.TransformerOptions{Key: []string{"md5"}, RequireInvertible: true}, "key", kvstore.ErrNotInvertible},
		{"one-way value required invertible", kvstore.TransformerOptions{Value: []string{"json", "xxhash"}, RequireInvertible: true}, "value", kvstore.ErrNotInvertible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingStore{innerStore: kvstore.NewMemoryStore()}
			_, err := kvstore.NewTransformer(inner, tt.opts)

			var cfgErr *kvstore.ConfigError
			must.True(t, errors.As(err, &cfgErr))
			must.Eq(t, tt.field, cfgErr.Field)
			must.ErrorIs(t, err, tt.target)
			must.Eq(t, int64(0), inner.closes.Load())
		})
	}
}

func TestTransformerRejectsUnserializableInput(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{Value: []string{"base64"}})
	defer tr.Close()

	err := tr.Store(t.Context(), map[string]any{"a": "b"}, "v")
	must.ErrorIs(t, err, kvstore.ErrUnsupportedType)
	err = tr.Store(t.Context(), "k", map[string]any{"a": "b"})
	must.ErrorIs(t, err, kvstore.ErrUnsupportedType)
}

// innerStore lets countingStore embed a Store without the field name
// shadowing the Store method.
type innerStore = kvstore.Store

// countingStore counts Close calls on the store it wraps.
type countingStore struct {
	innerStore
	closes atomic.Int64
}

func (c *countingStore) Close() error {
	c.closes.Add(1)
	return c.innerStore.Close()
}

func TestTransformerClosesInnerOnce(t *testing.T) {
	inner := &countingStore{innerStore: kvstore.NewMemoryStore()}
	tr := newTransformer(t, inner, kvstore.TransformerOptions{Key: []string{"tnet"}})

	must.NoError(t, tr.Close())
	must.ErrorIs(t, tr.Close(), kvstore.ErrClosed)
	must.Eq(t, int64(1), inner.closes.Load())

	_, _, err := tr.Load(t.Context(), "k")
	must.ErrorIs(t, err, kvstore.ErrClosed)
	for _, err := range tr.Keys(t.Context()) {
		must.ErrorIs(t, err, kvstore.ErrClosed)
	}
}

var errBoom = errors.New("disk on fire")

// failingBackend fails every primitive call.
type failingBackend struct{}

func (failingBackend) Get([]byte) ([]byte, bool, error)    { return nil, false, errBoom }
func (failingBackend) Set([]byte, []byte) error            { return errBoom }
func (failingBackend) Delete([]byte) ([]byte, bool, error) { return nil, false, errBoom }
func (failingBackend) Close() error                        { return nil }
func (failingBackend) WalkKeys(func([]byte) bool) error    { return errBoom }

func TestTransformerPropagatesAdapterErrors(t *testing.T) {
	tr := newTransformer(t, kvstore.Adapt(failingBackend{}), kvstore.TransformerOptions{
		Key:   []string{"tnet"},
		Value: []string{"tnet"},
	})
	defer tr.Close()

	must.True(t, tr.Store(t.Context(), "k", "v") == errBoom)

	_, found, err := tr.Load(t.Context(), "k")
	must.True(t, err == errBoom)
	must.False(t, found)

	_, found, err = tr.Delete(t.Context(), "k")
	must.True(t, err == errBoom)
	must.False(t, found)

	_, err = tr.EachKey(t.Context(), func(any) { t.Fatal("consumer must not run") })
	must.True(t, err == errBoom)
}

func TestNestedTransformerOverOneWayValues(t *testing.T) {
	inner := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{Value: []string{"md5"}})
	outer := newTransformer(t, inner, kvstore.TransformerOptions{Value: []string{"json"}})
	defer outer.Close()

	must.False(t, outer.ValuesInvertible())
	must.True(t, outer.KeysInvertible())

	must.NoError(t, outer.Store(t.Context(), "k", map[string]any{"field": 1}))
	first, found, err := outer.Load(t.Context(), "k")
	must.NoError(t, err)
	must.True(t, found)
	raw, ok := first.([]byte)
	must.True(t, ok)
	must.Eq(t, 32, len(raw))

	again, _, err := outer.Load(t.Context(), "k")
	must.NoError(t, err)
	must.Eq(t, first, again)

	_, err = kvstore.NewTransformer(inner, kvstore.TransformerOptions{
		Value:             []string{"json"},
		RequireInvertible: true,
	})
	must.ErrorIs(t, err, kvstore.ErrNotInvertible)
}

func TestNestedTransformerOverOneWayKeys(t *testing.T) {
	inner := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{Key: []string{"md5"}})
	outer := newTransformer(t, inner, kvstore.TransformerOptions{Key: []string{"json"}})
	defer outer.Close()

	must.False(t, outer.KeysInvertible())
	must.False(t, kvstore.KeysInvertible(kvstore.Instrument("nested", outer)))

	must.NoError(t, outer.Store(t.Context(), "k", "v"))
	must.Eq(t, []string{md5Hex(`"k"`)}, storetest.Collect(t, outer.Keys(t.Context())))
}

func TestByteTransformKeysEnumerateAsStrings(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{Key: []string{"base64"}})
	defer tr.Close()

	must.NoError(t, tr.Store(t.Context(), "plain", "v"))
	for k, err := range tr.Keys(t.Context()) {
		must.NoError(t, err)
		s, ok := k.(string)
		must.True(t, ok)
		must.Eq(t, "plain", s)
	}
}

func TestTransformerRejectsBinaryIntoTextSerializer(t *testing.T) {
	tr := newTransformer(t, kvstore.NewMemoryStore(), kvstore.TransformerOptions{
		Value:             []string{"zstd", "json"},
		RequireInvertible: true,
	})
	defer tr.Close()

	must.ErrorIs(t, tr.Store(t.Context(), "k", "hello"), kvstore.ErrUnsupportedType)
	_, found, err := tr.Load(t.Context(), "k")
	must.NoError(t, err)
	must.False(t, found)
}
