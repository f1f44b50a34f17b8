// Package config provides configuration management for the RestWell pairing server
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Pairing  PairingConfig  `yaml:"pairing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	TLSCert      string        `yaml:"tlsCert"`
	TLSKey       string        `yaml:"tlsKey"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds rate limit store settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PairingConfig holds pairing flow settings
type PairingConfig struct {
	// ReapInterval is how often expired tokens are swept
	ReapInterval time.Duration `yaml:"reapInterval"`
}

// Load builds a configuration from defaults and environment variables
func Load() (*Config, error) {
	cfg := defaultConfig()
	cfg.overlayEnv()
	return cfg, cfg.validate()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "restwell_pairing",
			User:    "postgres",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Pairing: PairingConfig{
			ReapInterval: time.Minute,
		},
	}
}

// overlayEnv overlays environment variables on top of the current config
func (c *Config) overlayEnv() {
	// Server config
	if host := getEnv("RWPAIR_SERVER_HOST", ""); host != "" {
		c.Server.Host = host
	}
	if port := getEnvAsInt("RWPAIR_SERVER_PORT", 0); port != 0 {
		c.Server.Port = port
	}
	if readTimeout := getEnvAsDuration("RWPAIR_SERVER_READ_TIMEOUT", 0); readTimeout != 0 {
		c.Server.ReadTimeout = readTimeout
	}
	if writeTimeout := getEnvAsDuration("RWPAIR_SERVER_WRITE_TIMEOUT", 0); writeTimeout != 0 {
		c.Server.WriteTimeout = writeTimeout
	}
	if idleTimeout := getEnvAsDuration("RWPAIR_SERVER_IDLE_TIMEOUT", 0); idleTimeout != 0 {
		c.Server.IdleTimeout = idleTimeout
	}
	if tlsCert := getEnv("RWPAIR_TLS_CERT", ""); tlsCert != "" {
		c.Server.TLSCert = tlsCert
	}
	if tlsKey := getEnv("RWPAIR_TLS_KEY", ""); tlsKey != "" {
		c.Server.TLSKey = tlsKey
	}

	// Database config - check multiple env var names
	if host := getEnvMulti([]string{"RWPAIR_DB_HOST", "DB_HOST", "POSTGRES_HOST"}, ""); host != "" {
		c.Database.Host = host
	}
	if port := getEnvAsIntMulti([]string{"RWPAIR_DB_PORT", "DB_PORT", "POSTGRES_PORT"}, 0); port != 0 {
		c.Database.Port = port
	}
	if name := getEnvMulti([]string{"RWPAIR_DB_NAME", "DB_NAME", "POSTGRES_DB"}, ""); name != "" {
		c.Database.Name = name
	}
	if user := getEnvMulti([]string{"RWPAIR_DB_USER", "DB_USER", "POSTGRES_USER"}, ""); user != "" {
		c.Database.User = user
	}
	if password := getEnvMulti([]string{"RWPAIR_DB_PASSWORD", "DB_PASSWORD", "POSTGRES_PASSWORD"}, ""); password != "" {
		c.Database.Password = password
	}
	if sslmode := getEnv("RWPAIR_DB_SSLMODE", ""); sslmode != "" {
		c.Database.SSLMode = sslmode
	}

	// Redis config
	if addr := getEnv("RWPAIR_REDIS_ADDR", ""); addr != "" {
		c.Redis.Addr = addr
	}
	if password := getEnv("RWPAIR_REDIS_PASSWORD", ""); password != "" {
		c.Redis.Password = password
	}
	if db := getEnvAsInt("RWPAIR_REDIS_DB", -1); db >= 0 {
		c.Redis.DB = db
	}

	// Pairing config
	if interval := getEnvAsDuration("RWPAIR_REAP_INTERVAL", 0); interval != 0 {
		c.Pairing.ReapInterval = interval
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvMulti(keys []string, fallback string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsIntMulti(keys []string, fallback int) int {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if i, err := strconv.Atoi(value); err == nil {
				return i
			}
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
