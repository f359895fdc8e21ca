package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "CPU", cfg.Device)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "models", cfg.ModelsDir)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "text", cfg.Logger.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OMZ_DEVICE", "TPU")
	t.Setenv("OMZ_THREADS", "8")
	t.Setenv("OMZ_LOGGER_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "TPU", cfg.Device)
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, "json", cfg.Logger.Format)
}
