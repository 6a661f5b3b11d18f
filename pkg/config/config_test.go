package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflow.yaml")
	doc := `
data_dir: /var/lib/reflow
headless: false
attach_endpoint: http://localhost:9222
selector_timeout_ms: 2500
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/reflow", cfg.DataDir)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "http://localhost:9222", cfg.AttachEndpoint)
	assert.Equal(t, 2500*time.Millisecond, cfg.SelectorTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsmalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDerivedDirs(t *testing.T) {
	cfg := Config{DataDir: "/data"}
	assert.Equal(t, "/data/flows", cfg.FlowsDir())
	assert.Equal(t, "/data/runs", cfg.RunsDir())
	assert.Equal(t, "/data/versions", cfg.VersionsDir())
	assert.Equal(t, "/data/cookies", cfg.CookiesDir())
	assert.Equal(t, "/data/artifacts", cfg.ArtifactsDir())
}
