package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration for errors.
func Validate(cfg *Config) error {
	if err := validateOracleConfig(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle config: %w", err)
	}
	if err := validateMarketConfig(&cfg.Market); err != nil {
		return fmt.Errorf("market config: %w", err)
	}
	if err := validateLendingConfig(&cfg.Lending); err != nil {
		return fmt.Errorf("lending config: %w", err)
	}
	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func validateOracleConfig(cfg *OracleConfig) error {
	if cfg.Symbol == "" {
		return ErrSymbolRequired
	}
	if cfg.MinSources < 1 {
		return ErrInvalidMinSources
	}
	if len(cfg.Sources) == 0 {
		return ErrNoSourcesConfigured
	}
	if len(cfg.Sources) < cfg.MinSources {
		return fmt.Errorf("%d sources, min %d: %w", len(cfg.Sources), cfg.MinSources, ErrNotEnoughSources)
	}
	for i, ip := range cfg.InitialPrices {
		if err := validateAmount(ip.Price); err != nil {
			return fmt.Errorf("initial price %d (%s): %w", i, ip.Symbol, err)
		}
	}
	return nil
}

func validateMarketConfig(cfg *MarketConfig) error {
	if err := validateAmount(cfg.InitialFunds); err != nil {
		return fmt.Errorf("initial_funds: %w", err)
	}
	return nil
}

func validateLendingConfig(cfg *LendingConfig) error {
	if cfg.CollateralFactor < 1 {
		return ErrInvalidCollateralFactor
	}
	if err := validateAmount(cfg.PoolTokens); err != nil {
		return fmt.Errorf("pool_tokens: %w", err)
	}
	for _, balance := range []string{cfg.Reserve.ReferenceBalance, cfg.Reserve.AssetBalance} {
		d, err := Decimal(balance)
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		if !d.IsPositive() {
			return fmt.Errorf("reserve: %w", ErrInvalidReserveBalance)
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("%s: %w", cfg.Level, ErrInvalidLogLevel)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%s: %w", cfg.Format, ErrInvalidLogFormat)
	}
	return nil
}

func validateAmount(s string) error {
	d, err := Decimal(s)
	if err != nil {
		return err
	}
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
