package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brettbedarf/blockfs/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()

	assert.Equal(t, util.InfoLevel, cfg.LogLvl)
	assert.EqualValues(t, DefaultBlockSize, cfg.BlockSize)
	assert.Equal(t, DefaultStreamBufferSize, cfg.StreamBufferSize)
	assert.Equal(t, DefaultBackendScheme, cfg.BackendScheme)
	assert.Empty(t, cfg.BackendRoot)
	assert.Equal(t, "blockfs", cfg.MountOptions.FsName)
}

func TestNewConfig_NilOverride(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NewDefaultConfig(), NewConfig(nil))
}

func TestMerge_PartialOverride(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()
	cfg.Merge(&ConfigOverride{
		BlockSize:     util.Pointer[int64](1024),
		BackendScheme: util.Pointer("disk"),
		BackendRoot:   util.Pointer("/var/lib/blockfs"),
	})

	assert.EqualValues(t, 1024, cfg.BlockSize)
	assert.Equal(t, "disk", cfg.BackendScheme)
	assert.Equal(t, "/var/lib/blockfs", cfg.BackendRoot)
	// Untouched fields keep their defaults
	assert.Equal(t, DefaultStreamBufferSize, cfg.StreamBufferSize)
	assert.Equal(t, util.InfoLevel, cfg.LogLvl)
}

func TestMerge_ZeroValueOverride(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()
	// A pointer to a zero value is set, not missing
	cfg.Merge(&ConfigOverride{BackendRoot: util.Pointer("")})
	assert.Empty(t, cfg.BackendRoot)
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewConfigFromFile_YAML(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, "config.yaml", `
block_size: 2048
backend_scheme: disk
backend_root: /tmp/objects
`)

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 2048, cfg.BlockSize)
	assert.Equal(t, "disk", cfg.BackendScheme)
	assert.Equal(t, "/tmp/objects", cfg.BackendRoot)
	assert.Equal(t, DefaultStreamBufferSize, cfg.StreamBufferSize)
}

func TestNewConfigFromFile_JSON(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, "config.json", `{"stream_buffer_size": 128}`)

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.StreamBufferSize)
	assert.EqualValues(t, DefaultBlockSize, cfg.BlockSize)
}

func TestLoadConfigOverrideFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigOverrideFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeConfigFile(t, "config.toml", "block_size = 1")
	_, err = LoadConfigOverrideFile(path)
	assert.ErrorContains(t, err, "unknown config file extension")
}

func TestLoadConfigOverrideFile_Malformed(t *testing.T) {
	t.Parallel()
	path := writeConfigFile(t, "bad.json", "{not json")
	_, err := LoadConfigOverrideFile(path)
	assert.ErrorContains(t, err, "failed to unmarshal")
}
