// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file, expanding environment
// variables in the file body before parsing.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Oracle.Symbol == "" {
		cfg.Oracle.Symbol = "DVNFT"
	}
	if cfg.Oracle.MinSources == 0 {
		cfg.Oracle.MinSources = 3
	}

	if cfg.Market.InitialFunds == "" {
		cfg.Market.InitialFunds = "0"
	}

	if cfg.Lending.CollateralFactor == 0 {
		cfg.Lending.CollateralFactor = 2
	}
	if cfg.Lending.TokenSymbol == "" {
		cfg.Lending.TokenSymbol = "DVT"
	}
	if cfg.Lending.PoolTokens == "" {
		cfg.Lending.PoolTokens = "0"
	}

	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// Decimal parses a configured amount string. Validation guarantees the
// string parses, so callers after Validate can ignore the error.
func Decimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ErrInvalidDecimal)
	}
	return d, nil
}
