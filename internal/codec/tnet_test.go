package codec

import (
	"errors"
	"reflect"
	"testing"
)

func TestTnetEncoding(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"hello", "5:hello,"},
		{"", "0:,"},
		{nil, "0:~"},
		{true, "4:true!"},
		{42, "2:42#"},
		{1.5, "3:1.5^"},
		{[]any{"a", int64(1)}, "8:1:a,1:1#]"},
		{map[string]any{"b": "2", "a": "1"}, "16:1:a,1:1,1:b,1:2,}"},
		{map[string]any{}, "0:}"},
	}
	for _, tt := range tests {
		got, err := encodeTnet(tt.in)
		if err != nil {
			t.Fatalf("encode %v: %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("encode %v = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTnetDecoding(t *testing.T) {
	got, err := decodeTnet([]byte("28:5:field,1:1#6:nested,4:1:x,]}"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{"field": int64(1), "nested": []any{"x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTnetMalformed(t *testing.T) {
	for _, in := range []string{"", "5:abc,", "x:abc,", "3:abc?", "5:hello,trailing", "4:1:a,}", "2:~~~"} {
		if _, err := decodeTnet([]byte(in)); !errors.Is(err, errTnetSyntax) {
			t.Errorf("decode %q: expected syntax error, got %v", in, err)
		}
	}
}

func TestTnetUnsupported(t *testing.T) {
	if _, err := encodeTnet(struct{}{}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}
