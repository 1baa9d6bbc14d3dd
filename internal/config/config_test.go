package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "manualforge.db", cfg.StorePath)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "decimal", cfg.Import.PatternSet)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_path: /data/manuals.db
import:
  pattern_set: strict
  granularity: h3
inbox:
  directory: ./inbox
  sweep_interval: 30s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/manuals.db", cfg.StorePath)
	assert.Equal(t, "strict", cfg.Import.PatternSet)
	assert.Equal(t, "h3", cfg.Import.Granularity)
	assert.Equal(t, 30*time.Second, cfg.Inbox.SweepEvery())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_path: from-file.db\n"), 0o644))
	t.Setenv("MANUALFORGE_STORE", "from-env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.StorePath)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Import.Granularity = "h5"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Import.PatternSet = "bogus"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Inbox.Directory = "./inbox"
	cfg.Inbox.SweepInterval = "not-a-duration"
	require.Error(t, cfg.Validate())
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
