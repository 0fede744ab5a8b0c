// Package config loads application configuration and wires up logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DataConfig names the on-disk databases
type DataConfig struct {
	StorePath string `mapstructure:"store_path"` // providers, tokens, playlists
	IndexPath string `mapstructure:"index_path"` // local media index
}

// HTTPConfig holds settings shared by the remote backend clients
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			StorePath: filepath.Join(defaultDataPath(), "medley.db"),
			IndexPath: filepath.Join(defaultDataPath(), "index.db"),
		},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "medley.log"),
			Level: "INFO",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9190",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "medley")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "medley")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "medley")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "medley")
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("MEDLEY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// EnsureDataDir creates the directories the configured paths live in
func (c *Config) EnsureDataDir() error {
	for _, path := range []string{c.Data.StorePath, c.Data.IndexPath, c.Logging.File} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return nil
}
