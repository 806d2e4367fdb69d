package kvstore

import (
	"errors"
	"fmt"

	"github.com/Jeanedlune/transkv/internal/codec"
)

var (
	// ErrClosed is returned by every operation on a store after Close.
	ErrClosed = errors.New("kvstore: store is closed")
	// ErrUnsupportedType is returned when a key or value cannot reach the
	// backend in its current form, e.g. a map stored without a serializer.
	ErrUnsupportedType = codec.ErrUnsupportedType
	// ErrNotInvertible marks a chain that cannot decode although the
	// configuration asked it to.
	ErrNotInvertible = codec.ErrNotInvertible
)

// ConfigError reports a store that could not be built from its configuration.
type ConfigError struct {
	Field string // "key" or "value"
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("kvstore: invalid %s codec configuration: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type typeError struct {
	v any
}

func (e *typeError) Error() string {
	return fmt.Sprintf("kvstore: %T is not a scalar; configure a serializing codec", e.v)
}

func (e *typeError) Unwrap() error { return ErrUnsupportedType }
