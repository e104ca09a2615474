package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvPort          = "PORT"
	EnvNodeEnv       = "NODE_ENV"
	EnvLogLevel      = "LOG_LEVEL"
	EnvServerAddress = "SERVER_BCH_ADDRESS"
	EnvAPIType       = "API_TYPE"
	EnvChainURL      = "BCH_SERVER_URL"
	EnvBearerToken   = "BEARER_TOKEN" // #nosec G101 -- false positive, this is a const name not a credential
	EnvMnemonic      = "SERVER_MNEMONIC"
	EnvDBPath        = "LEDGER_DB_PATH"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}

	if v := os.Getenv(EnvNodeEnv); v != "" {
		cfg.Env = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv(EnvServerAddress); v != "" {
		cfg.ServerAddress = v
	}

	if v := os.Getenv(EnvAPIType); v != "" {
		cfg.APIType = strings.ToLower(v)
	}

	if v := os.Getenv(EnvChainURL); v != "" {
		cfg.ChainURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv(EnvBearerToken); v != "" {
		cfg.BearerToken = v
	}

	if v := os.Getenv(EnvMnemonic); v != "" {
		cfg.Mnemonic = v
	}

	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
}
