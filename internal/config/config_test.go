package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monify-labs/procwatch/internal/errs"
)

func TestLoad(t *testing.T) {
	t.Run("missing_file_gives_defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file_values_override_defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"default_interval: 1s\nhistory_size: 30\ndefault_format: json\n"), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, time.Second, cfg.DefaultInterval)
		assert.Equal(t, 30, cfg.HistorySize)
		assert.Equal(t, "json", cfg.DefaultFormat)
		assert.Equal(t, DefaultIterations, cfg.DefaultIterations)
	})

	t.Run("env_overrides_file", func(t *testing.T) {
		t.Setenv("PROCWATCH_INTERVAL", "750ms")
		t.Setenv("PROCWATCH_DEBUG", "1")
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 750*time.Millisecond, cfg.DefaultInterval)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("bad_env_duration", func(t *testing.T) {
		t.Setenv("PROCWATCH_INTERVAL", "soon")
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("invalid_values_rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("default_iterations: 0\n"), 0600))
		_, err := Load(path)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("malformed_yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("history_size: [1, 2\n"), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.HistorySize = 42
	cfg.RefreshInterval = 5 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.HistorySize)
	assert.Equal(t, 5*time.Second, loaded.RefreshInterval)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\nPROCWATCH_TEST_A=one\nPROCWATCH_TEST_B=\"two\"\n\nnot a pair\n"), 0600))

	t.Setenv("PROCWATCH_TEST_A", "preset")
	t.Setenv("PROCWATCH_TEST_B", "")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "preset", os.Getenv("PROCWATCH_TEST_A"))
	assert.Equal(t, "two", os.Getenv("PROCWATCH_TEST_B"))

	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing")))
}
