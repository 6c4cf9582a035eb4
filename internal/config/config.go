// Package config reads and writes the budgie.yaml client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the user config directory.
const FileName = "budgie.yaml"

// Config represents the top-level budgie.yaml configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
	Import ImportConfig `yaml:"import"`
	Cache  CacheConfig  `yaml:"cache"`
}

// APIConfig locates the Budgie server.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig holds the default login. The password is never stored.
type AuthConfig struct {
	Username string `yaml:"username,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

// ImportConfig controls the statement import command.
type ImportConfig struct {
	Dir         string `yaml:"dir,omitempty"`
	LogPath     string `yaml:"log_path,omitempty"`
	Format      string `yaml:"format"`
	Concurrency int    `yaml:"concurrency"`
}

// CacheConfig selects how writes update cached lists.
type CacheConfig struct {
	Optimistic bool `yaml:"optimistic"`
}

// DefaultPath returns <user config dir>/budgie/budgie.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "budgie", FileName), nil
}

// Load reads a budgie.yaml file from disk. Fields the file leaves out keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file, creating its directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config pointing at a local server.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Import: ImportConfig{
			Format:      "statement",
			Concurrency: 4,
		},
	}
}

// Validate reports the first field that cannot be used.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout %s is negative", c.API.Timeout)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import.concurrency must be at least 1, got %d", c.Import.Concurrency)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
