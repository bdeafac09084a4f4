package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() is invalid: %v", err)
	}
	if cfg.SyncWindow != 24*time.Hour {
		t.Errorf("SyncWindow = %v, want 24h", cfg.SyncWindow)
	}
	if cfg.PlaylistTitle != "Automated Watch Later" {
		t.Errorf("PlaylistTitle = %q, want %q", cfg.PlaylistTitle, "Automated Watch Later")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"playlist id only", func(c *Config) { c.PlaylistTitle = ""; c.PlaylistID = "PL123" }, false},
		{"no playlist", func(c *Config) { c.PlaylistTitle = ""; c.PlaylistID = "" }, true},
		{"empty secrets path", func(c *Config) { c.ClientSecretsFile = "" }, true},
		{"empty token path", func(c *Config) { c.TokenFile = "" }, true},
		{"empty state path", func(c *Config) { c.StateFile = "" }, true},
		{"zero sync window", func(c *Config) { c.SyncWindow = 0 }, true},
		{"negative window", func(c *Config) { c.SyncWindow = -time.Hour }, true},
		{"zero max per channel", func(c *Config) { c.MaxPerChannel = 0 }, true},
		{"negative quota reserve", func(c *Config) { c.QuotaReserve = -1 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"zero initial backoff", func(c *Config) { c.InitialBackoff = 0 }, true},
		{"max backoff below initial", func(c *Config) { c.MaxBackoff = time.Millisecond }, true},
		{"multiplier too small", func(c *Config) { c.BackoffMultiplier = 1.0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // keep any real config file out of the test
	t.Setenv("AWL_SYNC_WINDOW", "48h")
	t.Setenv("AWL_PLAYLIST_ID", "PLenvtest")
	t.Setenv("AWL_MAX_RETRIES", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SyncWindow != 48*time.Hour {
		t.Errorf("SyncWindow = %v, want 48h", cfg.SyncWindow)
	}
	if cfg.PlaylistID != "PLenvtest" {
		t.Errorf("PlaylistID = %q, want PLenvtest", cfg.PlaylistID)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
}
