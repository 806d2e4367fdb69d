package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/kvstore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Storage.Type != kvstore.TypeBadger {
		t.Errorf("expected badger storage, got %s", cfg.Storage.Type)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
log:
  level: debug
  json: true
storage:
  type: pebble
  data_dir: /var/lib/transkv
transformer:
  key: [md5]
  value: [json, zstd]
raft:
  enabled: true
  bind_addr: "127.0.0.1:9091"
job_queue:
  retry_backoff: 250ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != ":9090" || cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("server/log sections not applied: %+v %+v", cfg.Server, cfg.Log)
	}
	if cfg.JobQueue.RetryBackoff != 250*time.Millisecond {
		t.Errorf("expected 250ms backoff, got %v", cfg.JobQueue.RetryBackoff)
	}
	if cfg.JobQueue.WorkerCount != 5 {
		t.Errorf("unset fields should keep defaults, got %d workers", cfg.JobQueue.WorkerCount)
	}

	opts := cfg.StoreOptions()
	if opts.Type != kvstore.TypePebble {
		t.Errorf("expected pebble, got %s", opts.Type)
	}
	if opts.Backend.DataDir != filepath.Join("/var/lib/transkv", "kvstore") {
		t.Errorf("unexpected data dir %s", opts.Backend.DataDir)
	}
	if opts.Raft == nil || opts.Raft.BindAddr != "127.0.0.1:9091" {
		t.Fatalf("expected raft options, got %+v", opts.Raft)
	}
	if strings.Join(opts.Transformer.Key, ",") != "md5" || strings.Join(opts.Transformer.Value, ",") != "json,zstd" {
		t.Errorf("unexpected transformer options %+v", opts.Transformer)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown storage type", "storage:\n  type: redis\n", "Type"},
		{"unknown log level", "log:\n  level: loud\n", "Level"},
		{"zero workers", "job_queue:\n  worker_count: 0\n", "WorkerCount"},
		{"raft without address", "raft:\n  enabled: true\n  bind_addr: \"\"\n", "BindAddr"},
		{"unknown field", "storage:\n  typo: 1\n", "typo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfigRejectsUnknownCodec(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "transformer:\n  value: [json, rot13]\n"))

	var cfgErr *kvstore.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a ConfigError, got %v", err)
	}
	if !errors.Is(err, codec.ErrUnknownCodec) {
		t.Errorf("expected ErrUnknownCodec in chain, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
