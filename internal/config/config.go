// Package config provides configuration for the chargewatch daemon.
// Values come from an optional TOML file overridden by CHARGEWATCH_*
// environment variables (e.g. CHARGEWATCH_SOURCE_BASE_URL,
// CHARGEWATCH_TELEGRAM_BOT_TOKEN).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CHARGEWATCH_"

// Config is the root configuration.
type Config struct {
	Source   SourceConfig   `koanf:"source"`
	Telegram TelegramConfig `koanf:"telegram"`
	Watch    WatchConfig    `koanf:"watch"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

// SourceConfig holds report source settings.
type SourceConfig struct {
	BaseURL   string        `koanf:"base_url"`
	LoginPath string        `koanf:"login_path"`
	ListPath  string        `koanf:"list_path"`
	Username  string        `koanf:"username"`
	Password  string        `koanf:"password"`
	Timeout   time.Duration `koanf:"timeout"`
	Headless  bool          `koanf:"headless"`
}

// TelegramConfig holds alert channel settings.
type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

// WatchConfig holds poll loop settings.
type WatchConfig struct {
	Interval     time.Duration `koanf:"interval"`
	CycleTimeout time.Duration `koanf:"cycle_timeout"`
	StateFile    string        `koanf:"state_file"`
}

// ServerConfig holds the operational HTTP endpoint settings. With an
// empty PasswordHash the state and metrics endpoints are served without
// auth; with one set, requests must pass basic auth against it.
type ServerConfig struct {
	BindAddress  string `koanf:"bind_address"`
	Username     string `koanf:"username"`
	PasswordHash string `koanf:"password_hash"` // bcrypt
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			LoginPath: "/login",
			ListPath:  "/charge-boxes",
			Timeout:   60 * time.Second,
			Headless:  true,
		},
		Watch: WatchConfig{
			Interval:     5 * time.Minute,
			CycleTimeout: 10 * time.Minute,
			StateFile:    "sent_stations.json",
		},
		Server: ServerConfig{
			BindAddress: ":8080",
			Username:    "admin",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given TOML file (if it exists) and
// the environment, over defaults.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envToKey maps CHARGEWATCH_SOURCE_BASE_URL to source.base_url: the first
// underscore separates the section, the rest is the key.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// Validate checks that required fields are present and sane.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return errors.New("config: source.base_url is required")
	}
	if c.Source.Username == "" || c.Source.Password == "" {
		return errors.New("config: source credentials are required")
	}
	if c.Telegram.BotToken == "" || c.Telegram.ChatID == "" {
		return errors.New("config: telegram bot_token and chat_id are required")
	}
	if c.Watch.Interval <= 0 {
		return errors.New("config: watch.interval must be positive")
	}
	if c.Watch.StateFile == "" {
		return errors.New("config: watch.state_file is required")
	}
	return nil
}
