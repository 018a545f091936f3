package bank

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/core"
)

// Token is a fungible asset ledger with return-checked transfers. The
// lending pool draws against it.
type Token struct {
	symbol   string
	mu       sync.Mutex
	balances map[core.Address]decimal.Decimal
}

// NewToken creates an empty token ledger for symbol.
func NewToken(symbol string) *Token {
	return &Token{
		symbol:   symbol,
		balances: make(map[core.Address]decimal.Decimal),
	}
}

// Symbol returns the token symbol.
func (t *Token) Symbol() string {
	return t.symbol
}

// Mint credits amount to account. Used to seed balances at bootstrap.
func (t *Token) Mint(account core.Address, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = t.balance(account).Add(amount)
}

// BalanceOf returns account's current balance.
func (t *Token) BalanceOf(account core.Address) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance(account)
}

// Transfer moves amount between accounts, failing on insufficient balance.
func (t *Token) Transfer(from, to core.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%s transfer %s: %w", t.symbol, amount, ErrNegativeAmount)
	}
	if amount.IsZero() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balance(from).LessThan(amount) {
		return fmt.Errorf("%s transfer %s from %s: %w", t.symbol, amount, from, ErrInsufficientBalance)
	}
	t.balances[from] = t.balance(from).Sub(amount)
	t.balances[to] = t.balance(to).Add(amount)
	return nil
}

// TakeSnapshot captures all balances for a later Restore.
func (t *Token) TakeSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := make(Snapshot, len(t.balances))
	for account, balance := range t.balances {
		snap[account] = balance
	}
	return snap
}

// Restore resets all balances to a previously taken snapshot.
func (t *Token) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances = make(map[core.Address]decimal.Decimal, len(snap))
	for account, balance := range snap {
		t.balances[account] = balance
	}
}

// balance reads an account balance without locking. Caller holds t.mu.
func (t *Token) balance(account core.Address) decimal.Decimal {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return decimal.Zero
}
