package kvstore

import (
	"context"
	"iter"
)

// walkFunc visits raw keys until yield returns false.
type walkFunc func(ctx context.Context, yield func(raw []byte) bool) error

// enumerator turns a raw walk into the two public key enumeration calls.
// De-duplication happens here, on the raw form, so that neither a backend that
// repeats keys nor a key decoder that produces unhashable values can leak a
// key twice.
type enumerator struct {
	walk   walkFunc
	decode func(raw []byte) (any, error)
}

func rawString(raw []byte) (any, error) {
	return string(raw), nil
}

func (e enumerator) keys(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		var (
			seen    = make(map[string]struct{})
			failed  error
			stopped bool
		)
		err := e.walk(ctx, func(raw []byte) bool {
			if failed = ctx.Err(); failed != nil {
				return false
			}
			id := string(raw)
			if _, dup := seen[id]; dup {
				return true
			}
			seen[id] = struct{}{}

			key, err := e.decode(raw)
			if err != nil {
				failed = err
				return false
			}
			if !yield(key, nil) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		if err == nil {
			err = failed
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

// each drives fn from keys and hands back self for chaining.
func each(ctx context.Context, self Store, seq iter.Seq2[any, error], fn func(key any)) (Store, error) {
	for key, err := range seq {
		if err != nil {
			return nil, err
		}
		fn(key)
	}
	return self, nil
}

// closedKeys is the sequence a closed store hands out.
func closedKeys(yield func(any, error) bool) {
	yield(nil, ErrClosed)
}
