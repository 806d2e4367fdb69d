package kvstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// Backend type names accepted by OpenBackend.
const (
	TypeMemory    = "memory"
	TypeBadger    = "badger"
	TypePebble    = "pebble"
	TypeBolt      = "bolt"
	TypeLevelDB   = "leveldb"
	TypePogreb    = "pogreb"
	TypeLRU       = "lru"
	TypeFreecache = "freecache"
)

// BackendTypes lists every name OpenBackend understands.
var BackendTypes = []string{TypeMemory, TypeBadger, TypePebble, TypeBolt, TypeLevelDB, TypePogreb, TypeLRU, TypeFreecache}

// BackendOptions carries the settings an engine may need.
type BackendOptions struct {
	// DataDir is the directory disk engines keep their files in.
	DataDir string
	// CacheEntries bounds the lru backend.
	CacheEntries int
	// CacheBytes sizes the freecache arena.
	CacheBytes int
}

// OpenBackend opens the engine named kind. Disk engines get their own
// subdirectory (or file, for bolt) under DataDir.
func OpenBackend(kind string, opts BackendOptions) (Backend, error) {
	dir := filepath.Join(opts.DataDir, kind)
	switch kind {
	case TypeMemory:
		return NewMemoryBackend(), nil
	case TypeLRU:
		return NewLRUBackend(opts.CacheEntries)
	case TypeFreecache:
		return NewFreecacheBackend(opts.CacheBytes), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	switch kind {
	case TypeBadger:
		return NewBadgerBackend(dir)
	case TypePebble:
		return NewPebbleBackend(dir, &pebble.Options{})
	case TypeBolt:
		return NewBoltBackend(filepath.Join(dir, "transkv.db"))
	case TypeLevelDB:
		return NewLevelBackend(dir)
	case TypePogreb:
		return NewPogrebBackend(dir)
	default:
		return nil, fmt.Errorf("unknown storage type %q", kind)
	}
}

// Options describes a complete store: an engine, optional replication and the
// codecs applied on top.
type Options struct {
	Type    string
	Backend BackendOptions
	// Raft replicates the engine when set.
	Raft *RaftConfig
	// Transformer is skipped when both codec lists are empty.
	Transformer TransformerOptions
	// Name labels the store's metrics. Empty leaves it uninstrumented.
	Name string
}

// Open builds the store opts describes. On error nothing is left open.
func Open(opts Options) (Store, error) {
	backend, err := OpenBackend(opts.Type, opts.Backend)
	if err != nil {
		return nil, err
	}

	if opts.Raft != nil {
		if err := os.MkdirAll(opts.Raft.DataDir, 0o755); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("failed to create raft data directory: %w", err)
		}
		node, err := NewRaftNode(backend, *opts.Raft)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("failed to initialize raft node: %w", err)
		}
		backend = node
	}

	var store Store = Adapt(backend)
	if len(opts.Transformer.Key) > 0 || len(opts.Transformer.Value) > 0 {
		tr, err := NewTransformer(store, opts.Transformer)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		store = tr
	}
	if opts.Name != "" {
		store = Instrument(opts.Name, store)
	}
	return store, nil
}
