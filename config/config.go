package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlServer holds the HTTP server configuration
type TomlServer struct {
	Port    int    `toml:"port"`
	BaseURL string `toml:"base_url"`
}

// TomlDatabase holds the SQLite database configuration
type TomlDatabase struct {
	Path string `toml:"path"`
}

// TomlAggregation holds tuning knobs for the aggregation pass
type TomlAggregation struct {
	Workers int `toml:"workers"`
}

// TomlLog holds the logging configuration
type TomlLog struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Server      TomlServer      `toml:"server"`
	Database    TomlDatabase    `toml:"database"`
	Aggregation TomlAggregation `toml:"aggregation"`
	Log         TomlLog         `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *TomlConfig {
	return &TomlConfig{
		Server:      TomlServer{Port: 3000, BaseURL: "http://localhost:3000"},
		Database:    TomlDatabase{Path: "multifeed.db"},
		Aggregation: TomlAggregation{Workers: 8},
		Log:         TomlLog{Level: "info", Format: "text"},
	}
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}
