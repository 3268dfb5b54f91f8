package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/blockfs/util"
	"gopkg.in/yaml.v3"
)

// Bytes per MB
const MB = 1024 * 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultBlockSize is the content block size in bytes. A file's bytes
	// are split into blocks of this size, each stored as its own backend
	// object.
	DefaultBlockSize = 64 * MB

	// DefaultStreamBufferSize is the read/write cursor buffer size in bytes
	DefaultStreamBufferSize = 4096

	// DefaultBackendScheme selects the object backend implementation
	DefaultBackendScheme = "memory"
)

// Config contains runtime configuration values for the block filesystem.
type Config struct {
	LogLvl           util.LogLevel // Log verbosity (Default info)
	BlockSize        int64         // Content block size in bytes (Default 64MB)
	StreamBufferSize int           // Cursor buffer size in bytes (Default 4096)
	BackendScheme    string        // Object backend scheme, i.e. "memory" or "disk" (Default "memory")
	BackendRoot      string        // Root directory for disk-like backends (Default "")
	MountOptions     MountOptions  // FUSE mount settings
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions.
type ConfigOverride struct {
	LogLvl           *util.LogLevel `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	BlockSize        *int64         `yaml:"block_size,omitempty" json:"block_size,omitempty"`
	StreamBufferSize *int           `yaml:"stream_buffer_size,omitempty" json:"stream_buffer_size,omitempty"`
	BackendScheme    *string        `yaml:"backend_scheme,omitempty" json:"backend_scheme,omitempty"`
	BackendRoot      *string        `yaml:"backend_root,omitempty" json:"backend_root,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLvl:           util.InfoLevel,
		BlockSize:        DefaultBlockSize,
		StreamBufferSize: DefaultStreamBufferSize,
		BackendScheme:    DefaultBackendScheme,
		MountOptions: MountOptions{
			FsName: "blockfs",
			Name:   "blockfs",
		},
	}
}

// NewConfig creates a Config from defaults with an optional override applied.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
	if override.BlockSize != nil {
		c.BlockSize = *override.BlockSize
	}
	if override.StreamBufferSize != nil {
		c.StreamBufferSize = *override.StreamBufferSize
	}
	if override.BackendScheme != nil {
		c.BackendScheme = *override.BackendScheme
	}
	if override.BackendRoot != nil {
		c.BackendRoot = *override.BackendRoot
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without
// merging. Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with
// defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
