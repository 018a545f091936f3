package bank

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/core"
)

// ReceiveHook runs when an account receives native currency. A non-nil
// error rejects the transfer. Hooks model programmable recipients: they may
// call back into other components, which is exactly the reentrancy surface
// those components guard against.
type ReceiveHook func(from core.Address, amount decimal.Decimal) error

// Ledger tracks native-currency balances. Transfers are atomic: if the
// recipient's hook rejects, both balance changes are undone.
type Ledger struct {
	mu       sync.Mutex
	balances map[core.Address]decimal.Decimal
	hooks    map[core.Address]ReceiveHook
}

// Snapshot is an opaque copy of ledger balances for rollback.
type Snapshot map[core.Address]decimal.Decimal

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[core.Address]decimal.Decimal),
		hooks:    make(map[core.Address]ReceiveHook),
	}
}

// Mint credits amount to account out of thin air. Used to seed balances at
// bootstrap and by tests.
func (l *Ledger) Mint(account core.Address, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balance(account).Add(amount)
}

// BalanceOf returns account's current balance.
func (l *Ledger) BalanceOf(account core.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(account)
}

// SetReceiveHook installs a hook invoked whenever account receives funds.
// A nil hook removes it.
func (l *Ledger) SetReceiveHook(account core.Address, hook ReceiveHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hook == nil {
		delete(l.hooks, account)
		return
	}
	l.hooks[account] = hook
}

// Transfer moves amount from one account to another. A zero amount is a
// no-op. The recipient's receive hook, if any, runs outside the ledger lock
// so it may legally touch the ledger again; if it rejects, the transfer is
// undone and ErrTransferRejected returned.
func (l *Ledger) Transfer(from, to core.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("transfer %s: %w", amount, ErrNegativeAmount)
	}
	if amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	if l.balance(from).LessThan(amount) {
		l.mu.Unlock()
		return fmt.Errorf("transfer %s from %s: %w", amount, from, ErrInsufficientBalance)
	}
	l.balances[from] = l.balance(from).Sub(amount)
	l.balances[to] = l.balance(to).Add(amount)
	hook := l.hooks[to]
	l.mu.Unlock()

	if hook != nil {
		if err := hook(from, amount); err != nil {
			l.mu.Lock()
			l.balances[from] = l.balance(from).Add(amount)
			l.balances[to] = l.balance(to).Sub(amount)
			l.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrTransferRejected, err)
		}
	}
	return nil
}

// TakeSnapshot captures all balances for a later Restore.
func (l *Ledger) TakeSnapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := make(Snapshot, len(l.balances))
	for account, balance := range l.balances {
		snap[account] = balance
	}
	return snap
}

// Restore resets all balances to a previously taken snapshot.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[core.Address]decimal.Decimal, len(snap))
	for account, balance := range snap {
		l.balances[account] = balance
	}
}

// balance reads an account balance without locking. Caller holds l.mu.
func (l *Ledger) balance(account core.Address) decimal.Decimal {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return decimal.Zero
}
