package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustLookup(t *testing.T, name string) Codec {
	t.Helper()
	c, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", name, err)
	}
	return c
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("rot13")
	if !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("Expected ErrUnknownCodec, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for _, want := range []string{"json", "tnet", "msgpack", "sha256", "zstd"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("codec %q not registered", want)
		}
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names not sorted: %v", names)
		}
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic on duplicate registration")
		}
	}()
	Register(New("json", encodeJSON, decodeJSON))
}

func TestSerializerRoundTrip(t *testing.T) {
	inputs := []any{
		"hello",
		"",
		map[string]any{"field": "value", "nested": map[string]any{"a": "b"}},
		map[string]any{},
	}
	for _, name := range []string{"json", "tnet", "yaml", "msgpack", "proto"} {
		c := mustLookup(t, name)
		if !c.Invertible() {
			t.Fatalf("%s should be invertible", name)
		}
		for _, in := range inputs {
			data, err := c.Encode(in)
			if err != nil {
				t.Fatalf("%s: encode %v: %v", name, in, err)
			}
			out, err := c.Decode(data)
			if err != nil {
				t.Fatalf("%s: decode %q: %v", name, data, err)
			}
			if !reflect.DeepEqual(in, out) {
				t.Errorf("%s: got %#v, want %#v", name, out, in)
			}
		}
	}
}

func TestSerializerDeterministic(t *testing.T) {
	in := map[string]any{"b": "2", "a": "1", "c": map[string]any{"z": "x", "y": "w"}}
	for _, name := range []string{"json", "tnet", "yaml", "msgpack", "proto"} {
		c := mustLookup(t, name)
		first, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for i := 0; i < 10; i++ {
			again, _ := c.Encode(in)
			if string(again) != string(first) {
				t.Fatalf("%s: encoding is not deterministic", name)
			}
		}
	}
}

func TestByteTransformRoundTrip(t *testing.T) {
	in := []byte(strings.Repeat("transkv ", 64))
	for _, name := range []string{"base64", "hex", "zstd", "snappy"} {
		c := mustLookup(t, name)
		data, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		out, err := c.Decode(data)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("%s: round trip mismatch", name)
		}

		if _, err := c.Encode(map[string]any{"a": "b"}); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("%s: expected ErrUnsupportedType for structured input, got %v", name, err)
		}
	}
}

func TestDigestsAreOneWay(t *testing.T) {
	for _, name := range []string{"md5", "sha1", "sha256", "blake2b", "xxhash", "uuid5"} {
		c := mustLookup(t, name)
		if c.Invertible() {
			t.Fatalf("%s should be one-way", name)
		}

		a, err := c.Encode("key")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		b, _ := c.Encode([]byte("key"))
		if string(a) != string(b) {
			t.Errorf("%s: string and bytes inputs should hash equally", name)
		}
		other, _ := c.Encode("other")
		if string(a) == string(other) {
			t.Errorf("%s: distinct inputs collided", name)
		}

		if _, err := c.Encode(map[string]any{"field": 1}); err != nil {
			t.Errorf("%s: structured input should hash: %v", name, err)
		}
		if _, err := c.Decode(a); !errors.Is(err, ErrNotInvertible) {
			t.Errorf("%s: expected ErrNotInvertible, got %v", name, err)
		}
	}
}

func TestKnownDigest(t *testing.T) {
	got, err := mustLookup(t, "md5").Encode("hello")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("md5(hello) = %s", got)
	}
}

func TestChain(t *testing.T) {
	chain, err := NewChain("json", "zstd", "base64")
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	if !chain.Invertible() {
		t.Fatal("chain should be invertible")
	}
	if got := strings.Join(chain.Names(), ","); got != "json,zstd,base64" {
		t.Errorf("Names = %s", got)
	}

	in := map[string]any{"field": "value"}
	data, err := chain.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := chain.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("got %#v, want %#v", out, in)
	}
}

func TestChainWithDigestIsOneWay(t *testing.T) {
	chain, err := NewChain("tnet", "sha256")
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	if chain.Invertible() {
		t.Fatal("chain ending in a digest should not be invertible")
	}
	data, err := chain.Encode(map[string]any{"field": "1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chain.Decode(data); !errors.Is(err, ErrNotInvertible) {
		t.Errorf("expected ErrNotInvertible, got %v", err)
	}
}

func TestChainUnknownName(t *testing.T) {
	if _, err := NewChain("json", "nope"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
}

func TestEmptyChainPassesScalars(t *testing.T) {
	var chain Chain
	data, err := chain.Encode("plain")
	if err != nil || string(data) != "plain" {
		t.Fatalf("Encode = %q, %v", data, err)
	}
	if _, err := chain.Encode(map[string]any{}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestTextSerializerAfterByteTransform(t *testing.T) {
	for _, serializer := range []string{"json", "yaml", "proto"} {
		t.Run(serializer, func(t *testing.T) {
			binary, err := NewChain("zstd", serializer)
			if err != nil {
				t.Fatalf("NewChain: %v", err)
			}
			if _, err := binary.Encode("hello"); !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("expected ErrUnsupportedType for non-UTF-8 input, got %v", err)
			}

			text, err := NewChain("hex", serializer)
			if err != nil {
				t.Fatalf("NewChain: %v", err)
			}
			data, err := text.Encode("hello")
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			out, err := text.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if string(out.([]byte)) != "hello" {
				t.Errorf("got %q, want hello", out)
			}
		})
	}
}

func TestTextSerializerRejectsNestedInvalidUTF8(t *testing.T) {
	in := map[string]any{"list": []any{"ok", "bad\xff"}}
	if _, err := mustLookup(t, "json").Encode(in); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := mustLookup(t, "tnet").Encode(in); err != nil {
		t.Errorf("tnet carries raw bytes and should accept it: %v", err)
	}
}
