package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/tendril/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultFetchTimeout, cfg.Fetch.Timeout)
	assert.Equal(t, StoreMemory, cfg.Stores.Local.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, DefaultAddr, cfg.Serve.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
base_url: https://api.example.com
fetch:
  timeout: 3s
stores:
  local:
    kind: Redis
    redis:
      addr: localhost:6379
      db: 2
log:
  level: debug
  file: tendril.log
  compress: true
serve:
  addr: :8080
`))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, StoreRedis, cfg.Stores.Local.Kind)
	assert.Equal(t, "localhost:6379", cfg.Stores.Local.Redis.Addr)
	assert.Equal(t, 2, cfg.Stores.Local.Redis.DB)
	assert.Equal(t, DefaultRedisPrefix, cfg.Stores.Local.Redis.Prefix)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Compress)
	assert.Equal(t, 100, cfg.Log.MaxSize, "unset keys keep their defaults")
	assert.Equal(t, ":8080", cfg.Serve.Addr)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Serve, cfg.Serve)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
	}{
		{"syntax", "fetch: [", errors.ErrConfigInvalid},
		{"unknown key", "colour: red", errors.ErrConfigInvalid},
		{"relative base", "base_url: /api", errors.ErrConfigInvalid},
		{"negative timeout", "fetch:\n  timeout: -1s", errors.ErrConfigInvalid},
		{"file without path", "stores:\n  local:\n    kind: file", errors.ErrConfigInvalid},
		{"redis without addr", "stores:\n  local:\n    kind: redis", errors.ErrConfigInvalid},
		{"unknown kind", "stores:\n  local:\n    kind: s3", errors.ErrConfigUnsupported},
		{"bad level", "log:\n  level: loud", errors.ErrConfigInvalid},
		{"negative rotation", "log:\n  max_age: -1", errors.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrConfigNotFound, errors.CodeOf(err))
	assert.False(t, Exists(dir))

	require.NoError(t, os.WriteFile(path, []byte("root: ./public\n"), 0644))
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.True(t, Exists(dir))
	assert.Equal(t, "./public", cfg.Root)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, dir, cfg.Dir())
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", ConfigFileName)

	cfg := Default()
	cfg.Stores.Local = LocalStoreConfig{Kind: StoreFile, Path: "local.json"}
	cfg.Fetch.Timeout = 1500 * time.Millisecond
	require.NoError(t, cfg.SaveTo(path))
	assert.Equal(t, path, cfg.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 1.5s")
	assert.Contains(t, string(data), "kind: file")

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Stores, loaded.Stores)
	assert.Equal(t, cfg.Fetch, loaded.Fetch)
}

func TestDirWithoutPath(t *testing.T) {
	assert.Equal(t, ".", Default().Dir())
}
