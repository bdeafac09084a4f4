// Package config manages application configuration.
//
// Settings are loaded in priority order: environment variables (AWL_*),
// then an optional JSON config file, then built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v8"
)

// Config holds all application configuration.
type Config struct {
	// OAuth credential files
	ClientSecretsFile string `json:"client_secrets_file" env:"AWL_CLIENT_SECRETS"`
	TokenFile         string `json:"token_file" env:"AWL_TOKEN_FILE"`

	// Local state (seen set + last-sync watermark)
	StateFile string `json:"state_file" env:"AWL_STATE_FILE"`

	// Target playlist. When PlaylistID is empty the playlist with
	// PlaylistTitle is found or created at run time.
	PlaylistID    string `json:"playlist_id" env:"AWL_PLAYLIST_ID"`
	PlaylistTitle string `json:"playlist_title" env:"AWL_PLAYLIST_TITLE"`

	// Sync settings
	SyncWindow    time.Duration `json:"sync_window" env:"AWL_SYNC_WINDOW"`
	MaxPerChannel int64         `json:"max_per_channel" env:"AWL_MAX_PER_CHANNEL"`
	QuotaReserve  int           `json:"quota_reserve" env:"AWL_QUOTA_RESERVE"`

	// Retry settings
	MaxRetries        int           `json:"max_retries" env:"AWL_MAX_RETRIES"`
	InitialBackoff    time.Duration `json:"initial_backoff" env:"AWL_INITIAL_BACKOFF"`
	MaxBackoff        time.Duration `json:"max_backoff" env:"AWL_MAX_BACKOFF"`
	BackoffMultiplier float64       `json:"backoff_multiplier" env:"AWL_BACKOFF_MULTIPLIER"`

	// Logging
	LogLevel string `json:"log_level" env:"AWL_LOG_LEVEL"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	configDir := filepath.Join(os.Getenv("HOME"), ".config", "auto-watch-later")
	return &Config{
		ClientSecretsFile: "client_secrets.json",
		TokenFile:         filepath.Join(configDir, "token.json"),
		StateFile:         filepath.Join(configDir, "state.json"),
		PlaylistTitle:     "Automated Watch Later",
		SyncWindow:        24 * time.Hour,
		MaxPerChannel:     10,
		QuotaReserve:      0,
		MaxRetries:        5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		LogLevel:          "info",
	}
}

// Load loads configuration from defaults, an optional config file, and
// environment variables. Priority: env vars > config file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from auto-watch-later.json in the
// current directory or the user's config directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"auto-watch-later.json",
		filepath.Join(os.Getenv("HOME"), ".config", "auto-watch-later", "config.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.ClientSecretsFile == "" {
		return fmt.Errorf("client_secrets_file must be set")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token_file must be set")
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file must be set")
	}
	if c.PlaylistID == "" && c.PlaylistTitle == "" {
		return fmt.Errorf("one of playlist_id or playlist_title must be set")
	}
	if c.SyncWindow <= 0 {
		return fmt.Errorf("sync_window must be positive")
	}
	if c.MaxPerChannel <= 0 {
		return fmt.Errorf("max_per_channel must be positive")
	}
	if c.QuotaReserve < 0 {
		return fmt.Errorf("quota_reserve must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}
