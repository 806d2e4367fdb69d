package codec

import "fmt"

// Chain is an ordered list of codecs. Encode runs them left to right, Decode
// runs the inverses right to left.
type Chain []Codec

// NewChain resolves every name through the registry. The first unknown name
// fails the whole chain.
func NewChain(names ...string) (Chain, error) {
	chain := make(Chain, 0, len(names))
	for _, name := range names {
		c, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
	}
	return chain, nil
}

// Invertible reports whether every codec in the chain can decode.
func (c Chain) Invertible() bool {
	for _, cc := range c {
		if !cc.Invertible() {
			return false
		}
	}
	return true
}

// Names returns the codec names in composition order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, cc := range c {
		names[i] = cc.Name()
	}
	return names
}

// Encode applies every codec in order. An empty chain only accepts scalars.
func (c Chain) Encode(v any) ([]byte, error) {
	if len(c) == 0 {
		return Bytes(v)
	}
	var (
		in  = v
		out []byte
		err error
	)
	for _, cc := range c {
		if out, err = cc.Encode(in); err != nil {
			return nil, err
		}
		in = out
	}
	return out, nil
}

// Decode undoes Encode. Every codec but the first must hand a scalar back to
// the one before it.
func (c Chain) Decode(data []byte) (any, error) {
	if len(c) == 0 {
		return data, nil
	}
	var v any = data
	for i := len(c) - 1; i >= 0; i-- {
		in, err := Bytes(v)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", c[i].Name(), err)
		}
		if v, err = c[i].Decode(in); err != nil {
			return nil, err
		}
	}
	return v, nil
}
