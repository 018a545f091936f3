package lending

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/bank"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
	"github.com/firattale/damn-vulnerable-defi/pkg/metrics"
)

// ReserveView is the read-only external liquidity reserve the pool prices
// against. Both balances are live reads: the ratio at call time is the
// ratio used, deliberately uncached across calls.
type ReserveView interface {
	ReferenceBalance() decimal.Decimal
	AssetBalance() decimal.Decimal
}

// Pool lends its asset against native-currency collateral sized from the
// reserve's implied price. Single-shot draws only: there is no repayment,
// interest or liquidation path, and per-account deposits only grow.
type Pool struct {
	addr    core.Address
	factor  decimal.Decimal
	reserve ReserveView
	token   *bank.Token
	ledger  *bank.Ledger

	busy atomic.Bool

	mu       sync.Mutex
	deposits map[core.Address]decimal.Decimal

	sink   core.Sink
	logger *logging.Logger
}

// New creates a lending pool with collateralization factor k, drawing
// token balances from the pool's own token account and holding collateral
// in its native-currency account.
func New(addr core.Address, k int64, reserve ReserveView, token *bank.Token, ledger *bank.Ledger, sink core.Sink, logger *logging.Logger) *Pool {
	return &Pool{
		addr:     addr,
		factor:   decimal.NewFromInt(k),
		reserve:  reserve,
		token:    token,
		ledger:   ledger,
		deposits: make(map[core.Address]decimal.Decimal),
		sink:     sink,
		logger:   logger,
	}
}

// Address returns the pool's own account.
func (p *Pool) Address() core.Address {
	return p.addr
}

// ImpliedPrice derives the reserve's current price of the asset in
// reference currency at Scale: referenceBalance * Scale / assetBalance,
// floor. An actor who shifts the reserve's ratio shifts this price for
// every caller until the ratio reverts.
func (p *Pool) ImpliedPrice() (decimal.Decimal, error) {
	asset := p.reserve.AssetBalance()
	if !asset.IsPositive() {
		return decimal.Zero, fmt.Errorf("implied price: %w", ErrEmptyReserve)
	}
	return core.FloorDiv(p.reserve.ReferenceBalance().Mul(core.Scale), asset), nil
}

// RequiredCollateral returns the native-currency collateral a borrow of
// amount requires right now: amount * impliedPrice * k / Scale, floor.
func (p *Pool) RequiredCollateral(amount decimal.Decimal) (decimal.Decimal, error) {
	price, err := p.ImpliedPrice()
	if err != nil {
		return decimal.Zero, err
	}
	return p.collateralAt(amount, price), nil
}

// Borrow draws amount of the pool's asset to recipient against the
// caller's payment. The implied price is read exactly once and threaded
// through the whole call. Excess payment is refunded before the asset
// moves, the required collateral is recorded cumulatively against the
// caller, and any failure rolls the entire call back.
func (p *Pool) Borrow(caller core.Address, amount decimal.Decimal, recipient core.Address, payment decimal.Decimal) (err error) {
	if !p.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("borrow: %w", ErrReentrantCall)
	}
	defer p.busy.Store(false)

	if !amount.IsPositive() {
		return fmt.Errorf("borrow %s: %w", amount, ErrInvalidAmount)
	}
	price, err := p.ImpliedPrice()
	if err != nil {
		return fmt.Errorf("borrow: %w", err)
	}
	required := p.collateralAt(amount, price)
	if payment.LessThan(required) {
		return fmt.Errorf("borrow %s needs %s, paid %s: %w",
			amount, required, payment, ErrNotEnoughCollateral)
	}

	ledgerSnap := p.ledger.TakeSnapshot()
	tokenSnap := p.token.TakeSnapshot()
	defer func() {
		if err != nil {
			p.token.Restore(tokenSnap)
			p.ledger.Restore(ledgerSnap)
			metrics.RecordRevert("lending", "borrow")
		}
	}()

	if err = p.ledger.Transfer(caller, p.addr, payment); err != nil {
		return fmt.Errorf("borrow: %w", err)
	}
	if err = p.ledger.Transfer(p.addr, caller, payment.Sub(required)); err != nil {
		return fmt.Errorf("borrow refund: %w", err)
	}

	p.mu.Lock()
	p.deposits[caller] = p.depositOf(caller).Add(required)
	p.mu.Unlock()
	defer func() {
		if err != nil {
			p.mu.Lock()
			p.deposits[caller] = p.depositOf(caller).Sub(required)
			p.mu.Unlock()
		}
	}()

	if err = p.token.Transfer(p.addr, recipient, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	metrics.RecordBorrow()
	p.logger.Info("Borrow settled",
		"account", caller, "recipient", recipient,
		"deposit", required.String(), "amount", amount.String())
	core.Emit(p.sink, core.Borrowed{
		Account: caller, Recipient: recipient,
		DepositRequired: required, Amount: amount,
	})
	return nil
}

// DepositOf returns the cumulative collateral recorded against account.
func (p *Pool) DepositOf(account core.Address) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.depositOf(account)
}

// collateralAt computes required collateral for amount at a fixed price.
func (p *Pool) collateralAt(amount, price decimal.Decimal) decimal.Decimal {
	return core.FloorDiv(amount.Mul(price).Mul(p.factor), core.Scale)
}

// depositOf reads a deposit entry without locking. Caller holds p.mu.
func (p *Pool) depositOf(account core.Address) decimal.Decimal {
	if d, ok := p.deposits[account]; ok {
		return d
	}
	return decimal.Zero
}
