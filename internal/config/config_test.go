package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "tabledb", cfg.AppName)
	require.Equal(t, 100, cfg.Cache.DefaultCapacity)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 8080, cfg.Server.Port)
	require.False(t, cfg.Server.Debug)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: mydb
cache:
  default_capacity: 25
logging:
  level: debug
server:
  port: 9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "mydb", cfg.AppName)
	require.Equal(t, 25, cfg.Cache.DefaultCapacity)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 3000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, 100, cfg.Cache.DefaultCapacity, "unset keys fall back to defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
