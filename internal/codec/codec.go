package codec

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrUnknownCodec is returned by Lookup for names that were never registered.
	ErrUnknownCodec = errors.New("unknown codec")
	// ErrNotInvertible is returned by Decode on one-way codecs.
	ErrNotInvertible = errors.New("codec is not invertible")
	// ErrUnsupportedType is returned when a codec cannot encode the given input.
	ErrUnsupportedType = errors.New("unsupported input type")
)

// Codec encodes logical keys or values into bytes and, when invertible,
// decodes them back.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
	Invertible() bool
}

// EncodeFunc and DecodeFunc are the two halves of a codec.
type (
	EncodeFunc func(v any) ([]byte, error)
	DecodeFunc func(data []byte) (any, error)
)

type funcCodec struct {
	name   string
	encode EncodeFunc
	decode DecodeFunc
}

// New builds a codec from its encode and decode halves. A nil decode makes
// the codec one-way.
func New(name string, encode EncodeFunc, decode DecodeFunc) Codec {
	return &funcCodec{name: name, encode: encode, decode: decode}
}

func (c *funcCodec) Name() string { return c.name }

func (c *funcCodec) Invertible() bool { return c.decode != nil }

func (c *funcCodec) Encode(v any) ([]byte, error) {
	b, err := c.encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", c.name, err)
	}
	return b, nil
}

func (c *funcCodec) Decode(data []byte) (any, error) {
	if c.decode == nil {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNotInvertible)
	}
	v, err := c.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.name, err)
	}
	return v, nil
}

// Bytes returns the byte form of a scalar. Strings and byte slices are the
// only scalars; anything else is rejected.
func Bytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// Display turns byte slices holding valid UTF-8 into strings so output
// encoders print them as text. Anything else is returned unchanged.
func Display(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}
