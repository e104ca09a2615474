// Package config provides configuration management for opentab.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment names for Env.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// API types for the chain client.
const (
	APITypeConsumer = "consumer-api"
	APITypeREST     = "rest-api"
)

// Config represents the application configuration.
type Config struct {
	Version int    `yaml:"version"`
	Home    string `yaml:"home"`

	// Server settings.
	Port     int    `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	// Facilitator identity.
	ServerAddress string `yaml:"server_address"`
	Mnemonic      string `yaml:"-"` // environment only, never persisted

	// Chain client settings.
	APIType     string `yaml:"api_type"`
	ChainURL    string `yaml:"chain_url"`
	BearerToken string `yaml:"bearer_token"`

	// Ledger store settings.
	DBPath string `yaml:"db_path"`
}

// Load reads the configuration file at path, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Path comes from the operator
		switch {
		case os.IsNotExist(err):
			// Defaults + environment only.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	ApplyEnvironment(cfg)
	cfg.Home = expandHome(cfg.Home)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.Home, "ledger")
	} else {
		cfg.DBPath = expandHome(cfg.DBPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for fatal inconsistencies.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.APIType {
	case APITypeConsumer, APITypeREST:
	default:
		return fmt.Errorf("invalid api_type %q", c.APIType)
	}

	// Outside development the facilitator must know which address funded
	// UTXOs have to pay, either directly or derivable from the mnemonic.
	if c.Env == EnvProduction && c.ServerAddress == "" && c.Mnemonic == "" {
		return fmt.Errorf("%s is required in production", EnvServerAddress)
	}
	return nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
