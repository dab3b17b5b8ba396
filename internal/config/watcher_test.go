package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, DefaultConfig().Save(path))

	w := NewWatcher(path, DefaultConfig(), nil)
	reloaded := make(chan *Config, 4)
	w.OnReload(func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	cfg := DefaultConfig()
	cfg.Behavior.MaxVisible = 9
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-reloaded:
		assert.Equal(t, 9, got.Behavior.MaxVisible)
		assert.Equal(t, 9, w.Current().Behavior.MaxVisible)
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback not called")
	}
}

func TestWatcher_KeepsConfigOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, DefaultConfig().Save(path))

	initial := DefaultConfig()
	w := NewWatcher(path, initial, nil)
	errs := make(chan error, 4)
	w.OnError(func(err error) { errs <- err })
	w.OnReload(func(*Config) { t.Error("invalid config must not be reloaded") })
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("[behavior]\nmax_visible = -4\n"), 0600))

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "max_visible")
		assert.Same(t, initial, w.Current())
	case <-time.After(3 * time.Second):
		t.Fatal("error callback not called")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "config.toml"), DefaultConfig(), nil)
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
