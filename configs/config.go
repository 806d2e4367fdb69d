package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Jeanedlune/transkv/internal/kvstore"
)

// Config holds all configuration for the application
type Config struct {
	Server struct {
		Port string `yaml:"port" validate:"required"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Storage struct {
		DataDir      string `yaml:"data_dir" validate:"required"`
		Type         string `yaml:"type" validate:"required,oneof=memory badger pebble bolt leveldb pogreb lru freecache"`
		CacheEntries int    `yaml:"cache_entries" validate:"gte=1"`
		CacheBytes   int    `yaml:"cache_bytes" validate:"gte=524288"`
	} `yaml:"storage"`

	// Transformer lists the codecs applied to keys and values, in order.
	Transformer kvstore.TransformerOptions `yaml:"transformer"`

	Raft struct {
		Enabled   bool   `yaml:"enabled"`
		BindAddr  string `yaml:"bind_addr" validate:"required_if=Enabled true"`
		Bootstrap bool   `yaml:"bootstrap"`
	} `yaml:"raft"`

	JobQueue struct {
		WorkerCount  int           `yaml:"worker_count" validate:"gte=1"`
		QueueSize    int           `yaml:"queue_size" validate:"gte=1"`
		MaxRetries   int           `yaml:"max_retries" validate:"gte=0"`
		RetryBackoff time.Duration `yaml:"retry_backoff" validate:"gte=0"`
		Store        string        `yaml:"store" validate:"oneof=memory bolt"` // where job records live
	} `yaml:"job_queue"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	config := &Config{}

	// Server defaults
	config.Server.Port = ":8080"

	config.Log.Level = "info"

	// Storage defaults
	config.Storage.DataDir = "data"
	config.Storage.Type = kvstore.TypeBadger
	config.Storage.CacheEntries = 10000
	config.Storage.CacheBytes = 64 << 20

	// Raft defaults
	config.Raft.Enabled = false
	config.Raft.BindAddr = ":8081"
	config.Raft.Bootstrap = true

	// Job queue defaults
	config.JobQueue.WorkerCount = 5
	config.JobQueue.QueueSize = 100
	config.JobQueue.MaxRetries = 3
	config.JobQueue.RetryBackoff = 5 * time.Second
	config.JobQueue.Store = kvstore.TypeBolt

	return config
}

// LoadConfig loads configuration from a YAML file and validates it
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if filename == "" {
		return config, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", filename, err)
	}
	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return config, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that every configured codec exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	// Building a throwaway transformer resolves the codec names.
	if _, err := kvstore.NewTransformer(nil, c.Transformer); err != nil {
		return err
	}
	return nil
}

// StoreOptions turns the storage, raft and transformer sections into the
// options kvstore.Open takes.
func (c *Config) StoreOptions() kvstore.Options {
	opts := kvstore.Options{
		Type: c.Storage.Type,
		Backend: kvstore.BackendOptions{
			DataDir:      filepath.Join(c.Storage.DataDir, "kvstore"),
			CacheEntries: c.Storage.CacheEntries,
			CacheBytes:   c.Storage.CacheBytes,
		},
		Transformer: c.Transformer,
		Name:        "data",
	}
	if c.Raft.Enabled {
		opts.Raft = &kvstore.RaftConfig{
			DataDir:   filepath.Join(c.Storage.DataDir, "raft"),
			BindAddr:  c.Raft.BindAddr,
			Bootstrap: c.Raft.Bootstrap,
		}
	}
	return opts
}

// JobStoreOptions describes the store job records are persisted in.
func (c *Config) JobStoreOptions() kvstore.Options {
	return kvstore.Options{
		Type:    c.JobQueue.Store,
		Backend: kvstore.BackendOptions{DataDir: filepath.Join(c.Storage.DataDir, "jobs")},
		Name:    "jobs",
	}
}
