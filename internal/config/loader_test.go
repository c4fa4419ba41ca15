package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
	assert.Equal(t, time.Hour, cfg.Session.MaxDuration)
	assert.Equal(t, 5, cfg.Session.ContextWindow)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Sweeper.MaxAge)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 0.0.0.0
  port: 9000
store:
  in_memory: true
business:
  name: Glow Studio
  hours: 10am-6pm
sweeper:
  max_age: 12h
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Store.InMemory)
	assert.Equal(t, "Glow Studio", cfg.Business.Name)
	assert.Equal(t, "10am-6pm", cfg.Business.Hours)
	assert.Equal(t, 12*time.Hour, cfg.Sweeper.MaxAge)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
`)

	t.Setenv("FRONTDESK_SERVER_PORT", "9100")
	t.Setenv("FRONTDESK_ORACLE_BASE_URL", "https://api.groq.com/openai/v1")
	t.Setenv("FRONTDESK_STORE_IN_MEMORY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Oracle.BaseURL)
	assert.True(t, cfg.Store.InMemory)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "server:\n  port: 99999\n"},
		{"bad log level", "logging:\n  level: chatty\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"negative sweep interval", "sweeper:\n  interval: -1m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateRequiresStorePath(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Store.Path = ""
	cfg.Store.InMemory = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")
}
