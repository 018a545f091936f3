// Package lending provides the reserve-priced collateralized lending pool.
package lending

import "errors"

var (
	// ErrNotEnoughCollateral indicates a payment below the required collateral.
	ErrNotEnoughCollateral = errors.New("not enough collateral")
	// ErrTransferFailed indicates that the pool could not transfer the borrowed asset.
	ErrTransferFailed = errors.New("asset transfer failed")
	// ErrInvalidAmount indicates a non-positive borrow amount.
	ErrInvalidAmount = errors.New("borrow amount must be positive")
	// ErrEmptyReserve indicates a reserve with no asset liquidity to price against.
	ErrEmptyReserve = errors.New("reserve has no asset liquidity")
	// ErrReentrantCall indicates a call while another call is still in progress.
	ErrReentrantCall = errors.New("reentrant call")
)
