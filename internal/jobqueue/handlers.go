package jobqueue

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/kvstore"
)

// Maintenance job types.
const (
	JobTypeExport = "export"
	JobTypePurge  = "purge"
)

// JobHandler defines the interface for processing different types of jobs
type JobHandler interface {
	Handle(ctx context.Context, job *Job) error
}

// JobProcessor manages different job handlers
type JobProcessor struct {
	mu       sync.RWMutex
	handlers map[string]JobHandler
}

// NewJobProcessor creates a new job processor
func NewJobProcessor() *JobProcessor {
	return &JobProcessor{
		handlers: make(map[string]JobHandler),
	}
}

// RegisterHandler registers a handler for a specific job type
func (p *JobProcessor) RegisterHandler(jobType string, handler JobHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[jobType] = handler
}

// Process processes a job using the appropriate handler
func (p *JobProcessor) Process(ctx context.Context, job *Job) error {
	p.mu.RLock()
	handler, exists := p.handlers[job.Type]
	p.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for job type: %s", job.Type)
	}
	return handler.Handle(ctx, job)
}

var validate = validator.New()

// decodePayload unmarshals a JSON payload into v and validates it. An empty
// payload leaves v at its zero value.
func decodePayload(job *Job, v any) error {
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, v); err != nil {
			return fmt.Errorf("invalid %s payload: %w", job.Type, err)
		}
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", job.Type, err)
	}
	return nil
}

// ErrOneWayKeys is returned by maintenance jobs over a store whose keys are
// hashed, since enumerated keys cannot address their entries.
var ErrOneWayKeys = errors.New("jobqueue: store keys are one-way encoded and cannot be read back")

// matchingKeys collects the keys of store that start with prefix. Keys that
// are not text only match an empty prefix.
func matchingKeys(ctx context.Context, store kvstore.Store, prefix string) ([]any, error) {
	if !kvstore.KeysInvertible(store) {
		return nil, ErrOneWayKeys
	}
	var keys []any
	for key, err := range store.Keys(ctx) {
		if err != nil {
			return nil, err
		}
		if prefix == "" {
			keys = append(keys, key)
			continue
		}
		if k, ok := codec.Display(key).(string); ok && strings.HasPrefix(k, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ExportRequest is the payload of an export job.
type ExportRequest struct {
	Prefix string `json:"prefix"`
}

// ExportEntry is one line of an export file.
type ExportEntry struct {
	Key   any `json:"key"`
	Value any `json:"value"`
}

// ExportHandler writes every live entry of Store, one JSON object per line,
// to Dir/<job id>.jsonl.
type ExportHandler struct {
	Store kvstore.Store
	Dir   string
}

// ExportPath is where the export for jobID is written.
func (h *ExportHandler) ExportPath(jobID string) string {
	return filepath.Join(h.Dir, jobID+".jsonl")
}

func (h *ExportHandler) Handle(ctx context.Context, job *Job) error {
	var req ExportRequest
	if err := decodePayload(job, &req); err != nil {
		return err
	}
	keys, err := matchingKeys(ctx, h.Store, req.Prefix)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := h.ExportPath(job.ID)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, key := range keys {
		value, found, err := h.Store.Load(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			// deleted since enumeration
			continue
		}
		if err := enc.Encode(ExportEntry{Key: codec.Display(key), Value: codec.Display(value)}); err != nil {
			return fmt.Errorf("failed to write export entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return os.Rename(tmp, path)
}

// PurgeRequest is the payload of a purge job.
type PurgeRequest struct {
	Prefix string `json:"prefix" validate:"required"`
}

// PurgeHandler deletes every key of Store that starts with the requested prefix.
type PurgeHandler struct {
	Store kvstore.Store
}

func (h *PurgeHandler) Handle(ctx context.Context, job *Job) error {
	var req PurgeRequest
	if err := decodePayload(job, &req); err != nil {
		return err
	}
	keys, err := matchingKeys(ctx, h.Store, req.Prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, _, err := h.Store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
