package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonletto/threadtrack/internal/config"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvDataDir, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvTelegramToken, "")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 120, cfg.IntervalSeconds())
	assert.Equal(t, 15*time.Second, cfg.APITimeout())
	assert.Equal(t, 10*time.Second, cfg.DesktopExpire())
	assert.True(t, cfg.HasBackend("desktop"))
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, "config.yaml", "\n"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cfg, err = config.Load(writeConfig(t, "config.yaml", "# nothing set yet\n"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.yaml", `
data_dir: /srv/threads
default_interval: 45s
api:
  rate_per_sec: 0.5
notify:
  backends: [log, telegram]
  telegram:
    token: "123:abc"
    chat_id: 42
history:
  enabled: false
logging:
  level: debug
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/threads", cfg.DataDir)
	assert.Equal(t, 45, cfg.IntervalSeconds())
	assert.InDelta(t, 0.5, cfg.API.RatePerSec, 1e-9)
	assert.Equal(t, "https://a.4cdn.org", cfg.API.BaseURL, "unset keys keep defaults")
	assert.Equal(t, []string{"log", "telegram"}, cfg.Notify.Backends)
	assert.False(t, cfg.HasBackend("desktop"))
	assert.Equal(t, int64(42), cfg.Notify.Telegram.ChatID)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_JSONFile(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, "config.json", `{"default_interval":"5m"}`))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.IntervalSeconds())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvDataDir, "/tmp/tt")
	t.Setenv(config.EnvLogLevel, "info")
	t.Setenv(config.EnvTelegramToken, "999:zzz")

	path := writeConfig(t, "config.yaml", `
data_dir: /ignored
notify:
  backends: [telegram]
  telegram: {chat_id: 7}
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tt", cfg.DataDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "999:zzz", cfg.Notify.Telegram.Token)
	assert.NotContains(t, cfg.String(), "999:zzz")
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "colour: blue\n", "unknown field"},
		{"non-url base", "api:\n  base_url: not a url\n", "BaseURL"},
		{"unknown backend", "notify:\n  backends: [pager]\n", "Backends"},
		{"no backends", "notify:\n  backends: []\n", "Backends"},
		{"desktop expire too long", "notify:\n  desktop: {expire: 1000h}\n", "notify.desktop.expire"},
		{"zero rate", "api:\n  rate_per_sec: 0\n", "RatePerSec"},
		{"bad duration", "default_interval: soon\n", "default_interval"},
		{"negative duration", "api:\n  timeout: -1s\n", "api.timeout"},
		{"telegram without token", "notify:\n  backends: [telegram]\n  telegram: {chat_id: 1}\n", "notify.telegram.token"},
		{"telegram without chat", "notify:\n  backends: [telegram]\n  telegram: {token: x}\n", "notify.telegram.chat_id"},
		{"bad schedule", "expiry:\n  sweep_schedule: whenever\n", "expiry.sweep_schedule"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"malformed yaml", "api: [\n", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.Load(writeConfig(t, "config.yaml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := config.ParseDurationOrDefault("x", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = config.ParseDurationOrDefault("x", " 3s ", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	_, err = config.ParseDurationOrDefault("x", "3 parsecs", time.Minute)
	assert.Error(t, err)
}
