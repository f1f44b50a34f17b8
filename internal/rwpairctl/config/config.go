// Package config provides configuration management for the RestWell
// pairing CLI
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration
type Config struct {
	// Server is the pairing API server URL
	Server string `mapstructure:"server"`
	// Token is the authentication token
	Token string `mapstructure:"token"`
	// UserID is the default account for device operations
	UserID string `mapstructure:"user-id"`
	// InsecureSkipVerify disables TLS verification
	InsecureSkipVerify bool `mapstructure:"insecure-skip-verify"`
}

// defaultConfigPath returns the default config file path
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rwpairctl/config.yaml"
	}
	return filepath.Join(home, ".rwpairctl/config.yaml")
}

// Load reads the configuration from the given path, falling back to
// RWPAIRCTL_CONFIG and then the default location. A missing file is not
// an error; environment variables still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RWPAIRCTL_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server", "")
	v.SetDefault("token", "")
	v.SetDefault("user-id", "")
	v.SetDefault("insecure-skip-verify", false)

	v.SetEnvPrefix("RWPAIR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !os.IsNotExist(err) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to the given path, creating the
// directory if needed
func Save(path string, cfg *Config) error {
	if path == "" {
		path = defaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.Set("server", cfg.Server)
	v.Set("token", cfg.Token)
	v.Set("user-id", cfg.UserID)
	v.Set("insecure-skip-verify", cfg.InsecureSkipVerify)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}
