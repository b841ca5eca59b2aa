// Package config loads quantamail configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	// ProfileDir holds the snapshot, credentials and token files.
	ProfileDir string `mapstructure:"profile_dir"`

	// Account is the mail account address this profile belongs to.
	Account string `mapstructure:"account"`

	// FlushWindowMS is the debounced-persistence quiescence window in
	// milliseconds.
	FlushWindowMS int `mapstructure:"flush_window_ms"`

	// FetchPageSize caps how many messages one folder fetch downloads.
	FetchPageSize int64 `mapstructure:"fetch_page_size"`

	// MaxAttempts is the sync-queue give-up threshold.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// FlushWindow returns the flush window as a duration.
func (c *Config) FlushWindow() time.Duration {
	return time.Duration(c.FlushWindowMS) * time.Millisecond
}

// SnapshotPath returns the profile snapshot file path.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.ProfileDir, "mail.db")
}

// DefaultProfileDir returns ~/.quantamail, falling back to a relative
// directory when the home directory cannot be resolved.
func DefaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quantamail"
	}
	return filepath.Join(home, ".quantamail")
}

// Load reads config.yaml from the profile directory (when present), applies
// QM_-prefixed environment variables and fills defaults. profileDir == ""
// selects the default location.
func Load(profileDir string) (*Config, error) {
	if profileDir == "" {
		profileDir = DefaultProfileDir()
	}

	v := viper.New()
	v.SetDefault("profile_dir", profileDir)
	v.SetDefault("account", "")
	v.SetDefault("flush_window_ms", 1000)
	v.SetDefault("fetch_page_size", 100)
	v.SetDefault("max_attempts", 8)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(profileDir)
	v.SetEnvPrefix("QM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.FlushWindowMS <= 0 {
		cfg.FlushWindowMS = 1000
	}
	if cfg.FetchPageSize <= 0 {
		cfg.FetchPageSize = 100
	}
	return &cfg, nil
}
