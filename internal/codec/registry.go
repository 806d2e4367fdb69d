package codec

import (
	"fmt"
	"slices"
	"sync"
)

var (
	codecs = make(map[string]Codec)
	mutex  sync.RWMutex
)

// Register makes a codec available by name. Codecs live for the whole
// process; registering the same name twice panics.
func Register(c Codec) {
	mutex.Lock()
	defer mutex.Unlock()

	if c == nil {
		panic("codec: Register codec is nil")
	}
	if _, dup := codecs[c.Name()]; dup {
		panic("codec: Register called twice for " + c.Name())
	}
	codecs[c.Name()] = c
}

// Lookup returns a registered codec by name.
func Lookup(name string) (Codec, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	c, exists := codecs[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// Names lists every registered codec, sorted.
func Names() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
