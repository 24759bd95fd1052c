package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config is the daemon configuration.
type Config struct {
	// Node identity and network.
	NodeID string            `yaml:"node_id"`
	Listen string            `yaml:"listen"`
	Peers  map[string]string `yaml:"peers"`

	// Storage.
	DatabasePath string `yaml:"database_path"`

	// Logging.
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Gossip rate limiting, tokens refilled per second.
	RateLimitBurst  int `yaml:"rate_limit_burst"`
	RateLimitRefill int `yaml:"rate_limit_refill"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:          "darkfid",
		Listen:          "127.0.0.1:8440",
		Peers:           map[string]string{},
		DatabasePath:    "darkfid.db",
		LogLevel:        "info",
		LogFile:         "",
		RateLimitBurst:  100,
		RateLimitRefill: 10,
	}
}

// LoadConfig reads the configuration from path, writing the default
// config there first if the file does not exist.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		config := DefaultConfig()
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		return config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, path); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return config, nil
}

// SaveConfig writes the configuration to path.
func SaveConfig(config *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_burst must be positive")
	}
	if c.RateLimitRefill <= 0 {
		return fmt.Errorf("rate_limit_refill must be positive")
	}
	return nil
}
