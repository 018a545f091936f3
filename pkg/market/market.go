package market

import (
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/assets"
	"github.com/firattale/damn-vulnerable-defi/pkg/bank"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
	"github.com/firattale/damn-vulnerable-defi/pkg/metrics"
)

// PriceSource is the oracle view the marketplace executes against. The
// price is read exactly once per call and threaded through; it is never
// re-read between two effects of the same call.
type PriceSource interface {
	ConsensusPrice(symbol string) (decimal.Decimal, error)
}

// Marketplace buys and sells uniquely identified assets strictly at the
// oracle's current consensus price. It exclusively controls its asset
// registry's mint and burn, and it retains sale proceeds in its own
// native-currency balance.
//
// Both entry points run under a one-call-at-a-time in-progress flag: the
// refund and payout are external value transfers that can call back in,
// and all state mutation completes before they run.
type Marketplace struct {
	addr   core.Address
	symbol string
	oracle PriceSource
	assets *assets.Registry
	ledger *bank.Ledger

	busy atomic.Bool

	sink   core.Sink
	logger *logging.Logger
}

// New creates a marketplace trading symbol at oracle prices, settling
// through ledger. The marketplace constructs its own asset registry with
// itself as the only mint/burn authority.
func New(addr core.Address, symbol string, oracle PriceSource, ledger *bank.Ledger, sink core.Sink, logger *logging.Logger) *Marketplace {
	return &Marketplace{
		addr:   addr,
		symbol: symbol,
		oracle: oracle,
		assets: assets.NewRegistry(addr),
		ledger: ledger,
		sink:   sink,
		logger: logger,
	}
}

// Address returns the marketplace's own account.
func (m *Marketplace) Address() core.Address {
	return m.addr
}

// Assets returns the marketplace's asset registry. Mint and burn remain
// reserved to the marketplace; owners use it to approve sells.
func (m *Marketplace) Assets() *assets.Registry {
	return m.assets
}

// Buy mints a new asset to the caller at the current consensus price.
// payment accompanies the call; anything above the price is refunded and
// the price itself is retained. Fails with ErrInvalidPayment when payment
// is zero or below the price, so the refund can never underflow.
func (m *Marketplace) Buy(caller core.Address, payment decimal.Decimal) (id uint64, err error) {
	if !m.busy.CompareAndSwap(false, true) {
		return 0, fmt.Errorf("buy: %w", ErrReentrantCall)
	}
	defer m.busy.Store(false)

	price, err := m.oracle.ConsensusPrice(m.symbol)
	if err != nil {
		return 0, fmt.Errorf("buy: %w", err)
	}
	if payment.IsZero() || payment.LessThan(price) {
		return 0, fmt.Errorf("buy at %s paid %s: %w", price, payment, ErrInvalidPayment)
	}

	ledgerSnap := m.ledger.TakeSnapshot()
	assetSnap := m.assets.TakeSnapshot()
	defer func() {
		if err != nil {
			m.assets.Restore(assetSnap)
			m.ledger.Restore(ledgerSnap)
			metrics.RecordRevert("market", "buy")
		}
	}()

	if err = m.ledger.Transfer(caller, m.addr, payment); err != nil {
		return 0, fmt.Errorf("buy: %w", err)
	}
	if id, err = m.assets.Mint(m.addr, caller); err != nil {
		return 0, fmt.Errorf("buy: %w", err)
	}

	// Mint and balance update are complete; the refund is the only
	// external interaction and it runs last.
	if err = m.ledger.Transfer(m.addr, caller, payment.Sub(price)); err != nil {
		return 0, fmt.Errorf("buy refund: %w", err)
	}

	metrics.RecordTrade("buy")
	m.logger.Info("Asset bought", "buyer", caller, "id", id, "price", price.String())
	core.Emit(m.sink, core.Bought{Buyer: caller, ID: id, Price: price})
	return id, nil
}

// Sell burns the caller's asset and pays out the current consensus price.
// The caller must own the asset and must have approved the marketplace for
// it beforehand; the marketplace must be able to cover the price.
func (m *Marketplace) Sell(caller core.Address, id uint64) (err error) {
	if !m.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("sell %d: %w", id, ErrReentrantCall)
	}
	defer m.busy.Store(false)

	price, err := m.oracle.ConsensusPrice(m.symbol)
	if err != nil {
		return fmt.Errorf("sell %d: %w", id, err)
	}

	owner, err := m.assets.OwnerOf(id)
	if err != nil {
		return fmt.Errorf("sell %d: %w", id, err)
	}
	if owner != caller {
		return fmt.Errorf("sell %d: %w", id, ErrNotOwner)
	}
	approved, err := m.assets.ApprovedFor(id)
	if err != nil {
		return fmt.Errorf("sell %d: %w", id, err)
	}
	if approved != m.addr {
		return fmt.Errorf("sell %d: %w", id, ErrNotApproved)
	}
	if m.ledger.BalanceOf(m.addr).LessThan(price) {
		return fmt.Errorf("sell %d at %s: %w", id, price, ErrInsufficientFunds)
	}

	ledgerSnap := m.ledger.TakeSnapshot()
	assetSnap := m.assets.TakeSnapshot()
	defer func() {
		if err != nil {
			m.assets.Restore(assetSnap)
			m.ledger.Restore(ledgerSnap)
			metrics.RecordRevert("market", "sell")
		}
	}()

	// Pull and burn before paying out: effects before interaction.
	if err = m.assets.Transfer(m.addr, id, caller, m.addr); err != nil {
		return fmt.Errorf("sell %d: %w", id, err)
	}
	if err = m.assets.Burn(m.addr, id); err != nil {
		return fmt.Errorf("sell %d: %w", id, err)
	}
	if err = m.ledger.Transfer(m.addr, caller, price); err != nil {
		return fmt.Errorf("sell %d payout: %w", id, err)
	}

	metrics.RecordTrade("sell")
	m.logger.Info("Asset sold", "seller", caller, "id", id, "price", price.String())
	core.Emit(m.sink, core.Sold{Seller: caller, ID: id, Price: price})
	return nil
}
