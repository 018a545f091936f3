// Package config provides configuration loading and validation.
package config

import "errors"

var (
	// ErrSymbolRequired indicates that the oracle symbol is missing.
	ErrSymbolRequired = errors.New("oracle symbol must be specified")
	// ErrNoSourcesConfigured indicates that no trusted sources are configured.
	ErrNoSourcesConfigured = errors.New("at least one trusted source must be configured")
	// ErrNotEnoughSources indicates fewer configured sources than min_sources.
	ErrNotEnoughSources = errors.New("fewer sources configured than min_sources")
	// ErrInvalidMinSources indicates a non-positive min_sources.
	ErrInvalidMinSources = errors.New("min_sources must be at least 1")
	// ErrInvalidDecimal indicates an amount that does not parse as a decimal.
	ErrInvalidDecimal = errors.New("invalid decimal amount")
	// ErrNegativeAmount indicates a negative configured amount.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInvalidCollateralFactor indicates a non-positive collateral factor.
	ErrInvalidCollateralFactor = errors.New("collateral_factor must be at least 1")
	// ErrInvalidReserveBalance indicates a reserve side without liquidity.
	ErrInvalidReserveBalance = errors.New("reserve balances must be positive")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
