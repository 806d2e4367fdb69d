package kvstore

import (
	"context"
	"errors"
	"testing"
)

func sliceWalk(keys ...string) walkFunc {
	return func(ctx context.Context, yield func(raw []byte) bool) error {
		for _, k := range keys {
			if !yield([]byte(k)) {
				return nil
			}
		}
		return nil
	}
}

func TestEnumeratorDeduplicates(t *testing.T) {
	e := enumerator{walk: sliceWalk("a", "b", "a", "c", "b"), decode: rawString}

	var got []any
	for k, err := range e.keys(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, k)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestEnumeratorEarlyStop(t *testing.T) {
	walked := 0
	e := enumerator{
		walk: func(ctx context.Context, yield func(raw []byte) bool) error {
			for _, k := range []string{"a", "b", "c"} {
				walked++
				if !yield([]byte(k)) {
					return nil
				}
			}
			return errors.New("walk should have stopped")
		},
		decode: rawString,
	}

	for k, err := range e.keys(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if k == "a" {
			break
		}
	}
	if walked != 1 {
		t.Errorf("expected the walk to stop after 1 key, walked %d", walked)
	}
}

func TestEnumeratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := enumerator{walk: sliceWalk("a", "b", "c"), decode: rawString}

	var (
		got     int
		lastErr error
	)
	for _, err := range e.keys(ctx) {
		if err != nil {
			lastErr = err
			break
		}
		got++
		cancel()
	}
	if got != 1 {
		t.Errorf("expected 1 key before cancellation, got %d", got)
	}
	if !errors.Is(lastErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", lastErr)
	}
}

func TestEnumeratorDecodeError(t *testing.T) {
	bad := errors.New("bad key")
	e := enumerator{
		walk:   sliceWalk("a"),
		decode: func([]byte) (any, error) { return nil, bad },
	}

	_, err := each(context.Background(), nil, e.keys(context.Background()), func(any) {
		t.Fatal("consumer must not run")
	})
	if !errors.Is(err, bad) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestEachReturnsSelf(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var calls int
	self, err := each(context.Background(), s, enumerator{walk: sliceWalk("x", "y"), decode: rawString}.keys(context.Background()), func(any) {
		calls++
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if self != Store(s) {
		t.Error("expected each to hand back the store it was given")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
