package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// ErrNotLeader is returned by writes on a follower.
var ErrNotLeader = errors.New("kvstore: raft node is not the leader")

const raftApplyTimeout = 10 * time.Second

// Command represents an operation to be performed on the local backend
type Command struct {
	Op    string `json:"op"` // "set" or "delete"
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// applyResult is what FSM.Apply hands back through the raft future.
type applyResult struct {
	old   []byte
	found bool
	err   error
}

// RaftConfig configures a replicated backend.
type RaftConfig struct {
	DataDir   string
	BindAddr  string
	Bootstrap bool
	Logger    hclog.Logger
}

// RaftNode replicates writes through the Raft consensus protocol and applies
// them to a local backend. Reads are served locally. It is itself a Backend,
// so it can sit under an AdapterStore and a Transformer like any engine.
type RaftNode struct {
	raft  *raft.Raft
	local Backend
	// stores are the log and stable stores, closed after raft shuts down.
	stores []io.Closer
}

var (
	_ Backend   = (*RaftNode)(nil)
	_ KeyWalker = (*RaftNode)(nil)
)

// NewRaftNode creates a new Raft node over a TCP transport with bolt-backed
// log and stable stores. The local backend must be able to walk its keys so
// snapshots can be taken.
func NewRaftNode(local Backend, cfg RaftConfig) (*RaftNode, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logWriter := logger.StandardWriter(&hclog.StandardLoggerOptions{InferLevels: true})

	// Setup Raft communication
	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, err
	}

	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, logWriter)
	if err != nil {
		return nil, err
	}

	// Create the snapshot store
	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, logWriter)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	// Create the log store and stable store
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		_ = errors.Join(logStore.Close(), transport.Close())
		return nil, err
	}

	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(cfg.BindAddr)
	config.Logger = logger.Named("raft")

	node, err := newRaftNode(local, config, cfg.Bootstrap, logStore, stableStore, snapshots, transport, logStore, stableStore)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return node, nil
}

// newRaftNode starts raft over the given stores. stores are closed when the
// node is, or right away if it fails to start.
func newRaftNode(local Backend, config *raft.Config, bootstrap bool, logs raft.LogStore, stable raft.StableStore, snaps raft.SnapshotStore, transport raft.Transport, stores ...io.Closer) (*RaftNode, error) {
	node := &RaftNode{local: local, stores: stores}
	if _, ok := local.(KeyWalker); !ok {
		_ = node.closeStores()
		return nil, fmt.Errorf("raft: local backend %T cannot walk keys", local)
	}

	// Instantiate the Raft system
	ra, err := raft.NewRaft(config, (*FSM)(node), logs, stable, snaps, transport)
	if err != nil {
		_ = node.closeStores()
		return nil, err
	}
	node.raft = ra

	if bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      config.LocalID,
					Address: transport.LocalAddr(),
				},
			},
		}
		if err := ra.BootstrapCluster(configuration).Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
			_ = ra.Shutdown().Error()
			_ = node.closeStores()
			return nil, err
		}
	}

	return node, nil
}

func (n *RaftNode) closeStores() error {
	var errs []error
	for _, c := range n.stores {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// IsLeader reports whether this node currently accepts writes.
func (n *RaftNode) IsLeader() bool {
	return n.raft.State() == raft.Leader
}

func (n *RaftNode) apply(cmd Command) (applyResult, error) {
	if !n.IsLeader() {
		return applyResult{}, ErrNotLeader
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return applyResult{}, err
	}
	f := n.raft.Apply(b, raftApplyTimeout)
	if err := f.Error(); err != nil {
		return applyResult{}, err
	}
	res, ok := f.Response().(applyResult)
	if !ok {
		return applyResult{}, fmt.Errorf("raft: unexpected apply response %T", f.Response())
	}
	return res, res.err
}

// Get reads from the local backend.
func (n *RaftNode) Get(key []byte) ([]byte, bool, error) {
	return n.local.Get(key)
}

// Set replicates a write and waits until it is applied locally.
func (n *RaftNode) Set(key, value []byte) error {
	_, err := n.apply(Command{Op: "set", Key: key, Value: value})
	return err
}

// Delete replicates a delete and returns the value the local backend held.
func (n *RaftNode) Delete(key []byte) ([]byte, bool, error) {
	res, err := n.apply(Command{Op: "delete", Key: key})
	if err != nil {
		return nil, false, err
	}
	return res.old, res.found, nil
}

// WalkKeys walks the local backend.
func (n *RaftNode) WalkKeys(fn func(key []byte) bool) error {
	return n.local.(KeyWalker).WalkKeys(fn)
}

// Close shuts down Raft, its log and stable stores, and then the local backend.
func (n *RaftNode) Close() error {
	return errors.Join(n.raft.Shutdown().Error(), n.closeStores(), n.local.Close())
}

// FSM implements the raft.FSM interface
type FSM RaftNode

// Apply applies a Raft log entry to the local backend
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return applyResult{err: err}
	}

	switch cmd.Op {
	case "set":
		return applyResult{err: f.local.Set(cmd.Key, cmd.Value)}
	case "delete":
		old, found, err := f.local.Delete(cmd.Key)
		return applyResult{old: old, found: found, err: err}
	default:
		return applyResult{err: fmt.Errorf("unknown command: %s", cmd.Op)}
	}
}

// Snapshot returns a snapshot of the local backend
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return takeSnapshot(f.local)
}

// Restore replaces the local backend's contents with a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	return restoreSnapshot(f.local, rc)
}
