// Package market provides the oracle-priced asset exchange.
package market

import "errors"

var (
	// ErrInvalidPayment indicates a zero payment or one below the current price.
	ErrInvalidPayment = errors.New("invalid payment")
	// ErrNotOwner indicates a sell by an account that does not own the asset.
	ErrNotOwner = errors.New("caller does not own asset")
	// ErrNotApproved indicates a sell without transfer rights granted to the marketplace.
	ErrNotApproved = errors.New("marketplace not approved for asset")
	// ErrInsufficientFunds indicates a marketplace balance below the sale price.
	ErrInsufficientFunds = errors.New("marketplace balance below price")
	// ErrReentrantCall indicates a call while another call is still in progress.
	ErrReentrantCall = errors.New("reentrant call")
)
