package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment overrides, applied after the config file.
const (
	EnvDataDir       = "THREADTRACK_DATA_DIR"
	EnvLogLevel      = "THREADTRACK_LOG_LEVEL"
	EnvTelegramToken = "THREADTRACK_TELEGRAM_TOKEN"
)

// Config is the threadtrack configuration file.
type Config struct {
	DataDir         string        `json:"data_dir"`
	DefaultInterval string        `json:"default_interval"`
	API             APIConfig     `json:"api"`
	Notify          NotifyConfig  `json:"notify"`
	Expiry          ExpiryConfig  `json:"expiry"`
	History         HistoryConfig `json:"history"`
	Logging         LoggingConfig `json:"logging"`
}

// APIConfig configures the read-only thread API.
type APIConfig struct {
	BaseURL    string  `json:"base_url" validate:"required,url"`
	Timeout    string  `json:"timeout"`
	RatePerSec float64 `json:"rate_per_sec" validate:"gt=0"`
	UserAgent  string  `json:"user_agent" validate:"required"`
}

// NotifyConfig selects and configures notification backends.
type NotifyConfig struct {
	Backends []string       `json:"backends" validate:"min=1,dive,oneof=desktop telegram log"`
	Desktop  DesktopConfig  `json:"desktop"`
	Telegram TelegramConfig `json:"telegram"`
}

type DesktopConfig struct {
	AppName string `json:"app_name"`
	Expire  string `json:"expire"`
	Command string `json:"command"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// ExpiryConfig controls the background inactive-thread sweep run while
// monitoring.
type ExpiryConfig struct {
	SweepSchedule string `json:"sweep_schedule"`
}

type HistoryConfig struct {
	Enabled bool `json:"enabled"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultInterval: "2m",
		API: APIConfig{
			BaseURL:    "https://a.4cdn.org",
			Timeout:    "15s",
			RatePerSec: 1,
			UserAgent:  "threadtrack/dev",
		},
		Notify: NotifyConfig{
			Backends: []string{"desktop"},
			Desktop: DesktopConfig{
				AppName: "threadtrack",
				Expire:  "10s",
				Command: "notify-send",
			},
		},
		Expiry:  ExpiryConfig{SweepSchedule: "@every 1h"},
		History: HistoryConfig{Enabled: true},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Load reads the config file at path on top of the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // G304 - operator-supplied config path
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	jb := data
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		var err error
		if jb, err = yamlToJSON(data); err != nil {
			return err
		}
		if jb == nil {
			return nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("trailing data")
		}
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		c.Notify.Telegram.Token = v
	}
}

// HasBackend reports whether name is among the enabled notify backends.
func (c *Config) HasBackend(name string) bool {
	for _, b := range c.Notify.Backends {
		if strings.EqualFold(strings.TrimSpace(b), name) {
			return true
		}
	}
	return false
}

// IntervalSeconds returns default_interval in whole seconds (at least 1).
func (c *Config) IntervalSeconds() int {
	d, err := ParseDurationOrDefault("default_interval", c.DefaultInterval, 2*time.Minute)
	if err != nil {
		d = 2 * time.Minute
	}
	if s := int(d / time.Second); s > 0 {
		return s
	}
	return 1
}

// APITimeout returns api.timeout, defaulting to 15s.
func (c *Config) APITimeout() time.Duration {
	d, err := ParseDurationOrDefault("api.timeout", c.API.Timeout, 15*time.Second)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// DesktopExpire returns notify.desktop.expire, defaulting to 10s.
func (c *Config) DesktopExpire() time.Duration {
	d, err := ParseDurationOrDefault("notify.desktop.expire", c.Notify.Desktop.Expire, 10*time.Second)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// String renders the effective configuration for --verbose startup logs
// with secrets masked.
func (c *Config) String() string {
	cp := *c
	if cp.Notify.Telegram.Token != "" {
		cp.Notify.Telegram.Token = "***"
	}
	b, err := json.Marshal(cp)
	if err != nil {
		return "config(" + strconv.Quote(err.Error()) + ")"
	}
	return string(b)
}
