package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.NotEmpty(t, cfg.Session.DefaultModel)
	assert.True(t, cfg.Tracing.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero idle timeout", func(c *Config) { c.Session.IdleTimeout = 0 }},
		{"zero sweep interval", func(c *Config) { c.Session.SweepInterval = 0 }},
		{"sweep longer than timeout", func(c *Config) { c.Session.SweepInterval = time.Hour }},
		{"empty default model", func(c *Config) { c.Session.DefaultModel = "" }},
		{"metrics enabled without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }},
		{"tracing enabled without service name", func(c *Config) { c.Tracing.ServiceName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoader_MissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "none.json"))
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxtel.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"session": {
			"idle_timeout": "10m",
			"sweep_interval": "1m",
			"default_model": "gemini-2.5-flash-native-audio"
		},
		"metrics": {"enabled": true, "addr": "127.0.0.1:9999"}
	}`), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "gemini-2.5-flash-native-audio", cfg.Session.DefaultModel)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Addr)
	// Untouched sections keep defaults.
	assert.Equal(t, "voxtel", cfg.Tracing.ServiceName)
}

func TestLoader_InvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxtel.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session": {"idle_timeout": "1s", "sweep_interval": "1h"}}`), 0600))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}
