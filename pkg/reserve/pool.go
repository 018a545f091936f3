package reserve

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/core"
)

// Pool is a constant-product liquidity reserve holding a reference
// currency against a traded asset. Consumers read the two spot balances;
// the ratio between them is the pool's implied price. Swaps shift that
// ratio, which is precisely how the ratio gets manipulated between two
// reads in one logical workflow.
type Pool struct {
	mu        sync.Mutex
	reference decimal.Decimal
	asset     decimal.Decimal
}

// NewPool creates a pool seeded with both balances. Both sides must hold
// liquidity.
func NewPool(reference, asset decimal.Decimal) (*Pool, error) {
	if !reference.IsPositive() || !asset.IsPositive() {
		return nil, fmt.Errorf("new pool: %w", ErrZeroLiquidity)
	}
	return &Pool{reference: reference, asset: asset}, nil
}

// ReferenceBalance returns the pool's current reference-currency balance.
func (p *Pool) ReferenceBalance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reference
}

// AssetBalance returns the pool's current traded-asset balance.
func (p *Pool) AssetBalance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asset
}

// SwapAssetForReference deposits amountIn of the asset and returns the
// reference-currency amount paid out, keeping the balance product
// constant. Selling asset into the pool lowers its implied price.
func (p *Pool) SwapAssetForReference(amountIn decimal.Decimal) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, fmt.Errorf("swap: %w", ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := core.FloorDiv(p.reference.Mul(amountIn), p.asset.Add(amountIn))
	if out.GreaterThanOrEqual(p.reference) {
		return decimal.Zero, fmt.Errorf("swap: %w", ErrZeroLiquidity)
	}
	p.asset = p.asset.Add(amountIn)
	p.reference = p.reference.Sub(out)
	return out, nil
}

// SwapReferenceForAsset deposits amountIn of reference currency and
// returns the asset amount paid out.
func (p *Pool) SwapReferenceForAsset(amountIn decimal.Decimal) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, fmt.Errorf("swap: %w", ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := core.FloorDiv(p.asset.Mul(amountIn), p.reference.Add(amountIn))
	if out.GreaterThanOrEqual(p.asset) {
		return decimal.Zero, fmt.Errorf("swap: %w", ErrZeroLiquidity)
	}
	p.reference = p.reference.Add(amountIn)
	p.asset = p.asset.Sub(out)
	return out, nil
}
