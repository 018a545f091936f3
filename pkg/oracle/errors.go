// Package oracle provides the trust-weighted multi-source price oracle.
package oracle

import "errors"

var (
	// ErrUnauthorized indicates a call by an account lacking the required capability.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotEnoughSources indicates fewer registered trusted sources than the minimum.
	ErrNotEnoughSources = errors.New("not enough trusted sources")
	// ErrLengthMismatch indicates bootstrap input sequences of differing lengths.
	ErrLengthMismatch = errors.New("input length mismatch")
	// ErrNegativePrice indicates a negative price report.
	ErrNegativePrice = errors.New("price must not be negative")
)
