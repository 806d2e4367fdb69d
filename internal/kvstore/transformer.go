package kvstore

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/Jeanedlune/transkv/internal/codec"
)

// TransformerOptions selects the codecs a Transformer applies. The order of
// each list is the composition order.
type TransformerOptions struct {
	Key   []string `yaml:"key"`
	Value []string `yaml:"value"`
	// RequireInvertible rejects one-way chains at construction instead of
	// falling back to returning raw stored values.
	RequireInvertible bool `yaml:"require_invertible"`
}

// Transformer rewrites keys and values through codec chains before handing
// them to the store it wraps.
//
// When the value chain contains a one-way codec, or the store it wraps hands
// back raw values, Load and Delete return the raw stored bytes. Keys behave
// the same way: a one-way key chain makes Keys yield the raw encoded keys as
// strings. Distinct keys that encode to the same bytes share
// one entry; the last Store wins.
type Transformer struct {
	inner  Store
	key    codec.Chain
	value  codec.Chain
	closed atomic.Bool
	enum   enumerator

	// A chain is treated as one-way when it, or the store under it, is.
	keyInvertible   bool
	valueInvertible bool
}

var (
	_ Store    = (*Transformer)(nil)
	_ Inverter = (*Transformer)(nil)
)

// NewTransformer wraps inner, which it owns from then on. Unknown codec names
// and, with RequireInvertible, one-way chains fail here with a *ConfigError.
func NewTransformer(inner Store, opts TransformerOptions) (*Transformer, error) {
	key, err := codec.NewChain(opts.Key...)
	if err != nil {
		return nil, &ConfigError{Field: "key", Err: err}
	}
	value, err := codec.NewChain(opts.Value...)
	if err != nil {
		return nil, &ConfigError{Field: "value", Err: err}
	}
	t := &Transformer{
		inner:           inner,
		key:             key,
		value:           value,
		keyInvertible:   key.Invertible() && KeysInvertible(inner),
		valueInvertible: value.Invertible() && ValuesInvertible(inner),
	}
	if opts.RequireInvertible {
		if !t.keyInvertible {
			return nil, &ConfigError{Field: "key", Err: fmt.Errorf("%w: %v", ErrNotInvertible, key.Names())}
		}
		if !t.valueInvertible {
			return nil, &ConfigError{Field: "value", Err: fmt.Errorf("%w: %v", ErrNotInvertible, value.Names())}
		}
	}

	t.enum = enumerator{walk: t.walkInner, decode: t.decodeKey}
	return t, nil
}

// KeyCodecs and ValueCodecs report the configured chains.
func (t *Transformer) KeyCodecs() []string   { return t.key.Names() }
func (t *Transformer) ValueCodecs() []string { return t.value.Names() }

// KeysInvertible reports whether enumerated keys decode to the keys that were
// stored, and so can be handed back to Load and Delete.
func (t *Transformer) KeysInvertible() bool { return t.keyInvertible }

// ValuesInvertible reports whether Load returns the stored values rather than
// their raw encoded form.
func (t *Transformer) ValuesInvertible() bool { return t.valueInvertible }

func (t *Transformer) encodeKey(key any) (any, error) {
	if len(t.key) == 0 {
		return key, nil
	}
	b, err := t.key.Encode(key)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Transformer) decodeKey(raw []byte) (any, error) {
	if !t.keyInvertible {
		return string(raw), nil
	}
	key, err := t.key.Decode(raw)
	if err != nil {
		return nil, err
	}
	if b, ok := key.([]byte); ok {
		return string(b), nil
	}
	return key, nil
}

func (t *Transformer) encodeValue(value any) (any, error) {
	if len(t.value) == 0 {
		return value, nil
	}
	return t.value.Encode(value)
}

func (t *Transformer) decodeValue(stored any) (any, error) {
	if len(t.value) == 0 {
		return stored, nil
	}
	raw, err := codec.Bytes(stored)
	if err != nil {
		return nil, err
	}
	if !t.valueInvertible {
		return append([]byte{}, raw...), nil
	}
	return t.value.Decode(raw)
}

// Store implements Store.
func (t *Transformer) Store(ctx context.Context, key, value any) error {
	if t.closed.Load() {
		return ErrClosed
	}
	k, err := t.encodeKey(key)
	if err != nil {
		return err
	}
	v, err := t.encodeValue(value)
	if err != nil {
		return err
	}
	return t.inner.Store(ctx, k, v)
}

// Load implements Store.
func (t *Transformer) Load(ctx context.Context, key any) (any, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	k, err := t.encodeKey(key)
	if err != nil {
		return nil, false, err
	}
	stored, found, err := t.inner.Load(ctx, k)
	if err != nil || !found {
		return nil, false, err
	}
	v, err := t.decodeValue(stored)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Delete implements Store.
func (t *Transformer) Delete(ctx context.Context, key any) (any, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	k, err := t.encodeKey(key)
	if err != nil {
		return nil, false, err
	}
	stored, found, err := t.inner.Delete(ctx, k)
	if err != nil || !found {
		return nil, false, err
	}
	v, err := t.decodeValue(stored)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (t *Transformer) walkInner(ctx context.Context, yield func(raw []byte) bool) error {
	for k, err := range t.inner.Keys(ctx) {
		if err != nil {
			return err
		}
		raw, err := codec.Bytes(k)
		if err != nil {
			return err
		}
		if !yield(raw) {
			return nil
		}
	}
	return nil
}

// Keys implements Store. Without key codecs the inner keys pass through as-is.
func (t *Transformer) Keys(ctx context.Context) iter.Seq2[any, error] {
	seq := t.inner.Keys(ctx)
	if len(t.key) > 0 {
		seq = t.enum.keys(ctx)
	}
	return func(yield func(any, error) bool) {
		if t.closed.Load() {
			closedKeys(yield)
			return
		}
		seq(yield)
	}
}

// EachKey implements Store.
func (t *Transformer) EachKey(ctx context.Context, fn func(key any)) (Store, error) {
	return each(ctx, t, t.Keys(ctx), fn)
}

// Close closes the wrapped store the first time it is called.
func (t *Transformer) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return t.inner.Close()
}
