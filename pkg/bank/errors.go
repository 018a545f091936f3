// Package bank provides the native-currency ledger and fungible token ledger.
package bank

import "errors"

var (
	// ErrInsufficientBalance indicates a transfer exceeding the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNegativeAmount indicates a negative transfer amount.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrTransferRejected indicates that the recipient rejected the transfer.
	ErrTransferRejected = errors.New("transfer rejected by recipient")
)
