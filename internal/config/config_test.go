package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err) // explicit config file must exist

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDPI, cfg.DPI)
	assert.Equal(t, WindowWidth, cfg.Window.Width)
	assert.Equal(t, WindowHeight, cfg.Window.Height)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Colors)
	assert.Equal(t, 15, cfg.Suggest.CloseKernel)
	assert.InDelta(t, 0.0005, cfg.Suggest.MinArea, 1e-9)
	assert.InDelta(t, 0.9, cfg.Suggest.MaxArea, 1e-9)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagemark.yaml")
	content := `
dpi: 150
log_level: debug
window:
  width: 1600
  height: 900
colors:
  - "#ff0000"
  - "#00ff00"
suggest:
  close_kernel: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.DPI)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1600, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height)
	assert.Equal(t, []string{"#ff0000", "#00ff00"}, cfg.Colors)
	assert.Equal(t, 25, cfg.Suggest.CloseKernel)

	// Unset keys keep their defaults.
	assert.InDelta(t, 0.9, cfg.Suggest.MaxArea, 1e-9)
}

func TestLoadRejectsInvalidDPI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagemark.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dpi: -10\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
