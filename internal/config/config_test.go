package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "reports.db", cfg.Store.Path)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.Workers)
	assert.Equal(t, 8, cfg.Extract.WindowSize)
	assert.Equal(t, 2, cfg.Extract.Overlap)
	assert.Equal(t, 6, cfg.Extract.Concurrency)
	assert.True(t, cfg.Extract.EnableVerification)
	assert.Equal(t, 3500, cfg.Extract.MaxPromptChars)
	assert.Equal(t, 30*time.Second, cfg.Extract.RequestTimeout())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REPORTX_SERVER_PORT", "9100")
	t.Setenv("REPORTX_EXTRACT_WINDOW_SIZE", "12")
	t.Setenv("REPORTX_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Extract.WindowSize)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "extremely-loud"}))
}
