package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "hedgesync", cfg.App.Name)
	assert.Equal(t, "127.0.0.1:8081", cfg.Listener.Addr())
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: syncer
bridge:
  url: http://bridge.local:5000
  timeout_seconds: 3
listener:
  port: 9000
sltp:
  delay_ms: 1500
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "syncer", cfg.App.Name)
	assert.Equal(t, "http://bridge.local:5000", cfg.Bridge.URL)
	assert.Equal(t, 3, cfg.Bridge.TimeoutSeconds)
	assert.Equal(t, 9000, cfg.Listener.Port)
	assert.Equal(t, 1500, cfg.SLTP.DelayMs)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Bridge.HealthTimeoutSeconds)
	assert.Equal(t, "INFO", cfg.System.LogLevel)
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	t.Setenv("HEDGE_BRIDGE_URL", "http://10.0.0.5:5000")
	path := writeConfigFile(t, `
bridge:
  url: ${HEDGE_BRIDGE_URL}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:5000", cfg.Bridge.URL)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty app name", func(c *Config) { c.App.Name = "" }, "app.name"},
		{"whitespace app name", func(c *Config) { c.App.Name = "my app" }, "app.name"},
		{"empty bridge url", func(c *Config) { c.Bridge.URL = "" }, "bridge.url"},
		{"bad bridge scheme", func(c *Config) { c.Bridge.URL = "ftp://x" }, "bridge.url"},
		{"zero bridge timeout", func(c *Config) { c.Bridge.TimeoutSeconds = 0 }, "bridge.timeout_seconds"},
		{"port too low", func(c *Config) { c.Listener.Port = 0 }, "listener.port"},
		{"port too high", func(c *Config) { c.Listener.Port = 70000 }, "listener.port"},
		{"negative rate limit", func(c *Config) { c.Listener.RateLimit = -1 }, "listener.rate_limit"},
		{"negative sltp delay", func(c *Config) { c.SLTP.DelayMs = -1 }, "sltp.delay_ms"},
		{"journal enabled without path", func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" }, "journal.path"},
		{"alerting enabled without webhook", func(c *Config) { c.Alerting.Enabled = true }, "alerting.webhook_url"},
		{"bad log level", func(c *Config) { c.System.LogLevel = "VERBOSE" }, "system.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "bridge: [unclosed")
	_, err := LoadConfig(path)
	require.Error(t, err)
}
