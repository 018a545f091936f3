// Package reserve provides an automated liquidity pool collaborator.
package reserve

import "errors"

var (
	// ErrZeroLiquidity indicates a pool side with no liquidity.
	ErrZeroLiquidity = errors.New("zero liquidity in pool")
	// ErrInvalidAmount indicates a non-positive swap amount.
	ErrInvalidAmount = errors.New("swap amount must be positive")
)
