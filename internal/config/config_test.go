package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pipeline.MaxIterations)
	assert.InDelta(t, 0.9, cfg.Pipeline.RefineThreshold, 1e-9)
	assert.Equal(t, "badger", cfg.Persistence.Backend)
	assert.True(t, cfg.Dictionary.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Dictionary.Timeout)
	assert.Equal(t, "data", cfg.Seed.Dir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pipeline:
  max_iterations: 5
persistence:
  backend: memory
dictionary:
  enabled: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Pipeline.MaxIterations)
	assert.Equal(t, "memory", cfg.Persistence.Backend)
	assert.False(t, cfg.Dictionary.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Defaults survive for keys the file omits.
	assert.InDelta(t, 0.9, cfg.Pipeline.RefineThreshold, 1e-9)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Persistence.Backend)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SYNAPTIQ_PERSISTENCE_BACKEND", "redis")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Persistence.Backend)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	t.Setenv("SYNAPTIQ_PERSISTENCE_BACKEND", "etcd")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [not: a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
