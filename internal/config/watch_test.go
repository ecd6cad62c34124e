package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadAppliesValidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acclogger.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o600))

	l, err := NewLoader(WithConfigFile(path))
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`log_level = "debug"`), 0o600))

	var got *Config
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, func(c *Config) { got = c })

	require.NotNil(t, got)
	assert.Equal(t, "debug", got.LogLevel)
}

func TestReloadIgnoresInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acclogger.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o600))

	l, err := NewLoader(WithConfigFile(path))
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`log_level = "shouting"`), 0o600))

	called := false
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, func(*Config) { called = true })
	assert.False(t, called)
}

func TestReloadIgnoresChmod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acclogger.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o600))

	l, err := NewLoader(WithConfigFile(path))
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	called := false
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Chmod}, func(*Config) { called = true })
	assert.False(t, called)
}

func TestWatchWithoutFileIsNoop(t *testing.T) {
	t.Setenv("ACCLOGGER_CONFIG", "")

	l, err := NewLoader()
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	assert.NoError(t, l.Watch(context.Background(), func(*Config) {}))
}
