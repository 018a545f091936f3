package lending

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firattale/damn-vulnerable-defi/pkg/bank"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
	"github.com/firattale/damn-vulnerable-defi/pkg/reserve"
)

type fixture struct {
	pool     *Pool
	reserve  *reserve.Pool
	token    *bank.Token
	ledger   *bank.Ledger
	borrower core.Address
	events   *core.Recorder
}

// newFixture builds a pool with k=2 over a reserve seeded 1:1, so the
// implied price starts at exactly one reference unit per asset unit.
func newFixture(t *testing.T, poolTokens, borrowerFunds int64) *fixture {
	t.Helper()

	res, err := reserve.NewPool(decimal.NewFromInt(1000), decimal.NewFromInt(1000))
	require.NoError(t, err)

	token := bank.NewToken("DVT")
	ledger := bank.NewLedger()
	events := core.NewRecorder()
	addr := core.NewAddress()
	borrower := core.NewAddress()

	token.Mint(addr, decimal.NewFromInt(poolTokens))
	ledger.Mint(borrower, decimal.NewFromInt(borrowerFunds))

	pool := New(addr, 2, res, token, ledger, events, logging.NewNoopLogger())
	return &fixture{pool: pool, reserve: res, token: token, ledger: ledger, borrower: borrower, events: events}
}

func TestImpliedPrice(t *testing.T) {
	res, err := reserve.NewPool(decimal.NewFromInt(2000), decimal.NewFromInt(1000))
	require.NoError(t, err)

	pool := New(core.NewAddress(), 2, res, bank.NewToken("DVT"), bank.NewLedger(), nil, logging.NewNoopLogger())

	price, err := pool.ImpliedPrice()
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(2).Mul(core.Scale)))
}

func TestRequiredCollateral_Monotonic(t *testing.T) {
	f := newFixture(t, 10_000, 0)

	prev := decimal.Zero
	for _, amount := range []int64{1, 10, 100, 1000, 5000} {
		required, err := f.pool.RequiredCollateral(decimal.NewFromInt(amount))
		require.NoError(t, err)
		assert.True(t, required.GreaterThanOrEqual(prev),
			"collateral for %d below collateral for a smaller amount", amount)
		prev = required
	}
}

func TestBorrow_ScenarioFromReserveRatio(t *testing.T) {
	f := newFixture(t, 10_000, 5000)
	recipient := core.NewAddress()

	// k=2, implied price 1: borrowing 1000 requires exactly 2000.
	required, err := f.pool.RequiredCollateral(decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, required.Equal(decimal.NewFromInt(2000)))

	err = f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), recipient, decimal.NewFromInt(1999))
	require.ErrorIs(t, err, ErrNotEnoughCollateral)
	assert.True(t, f.token.BalanceOf(recipient).IsZero())
	assert.True(t, f.pool.DepositOf(f.borrower).IsZero())

	err = f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), recipient, decimal.NewFromInt(2000))
	require.NoError(t, err)

	assert.True(t, f.token.BalanceOf(recipient).Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.pool.DepositOf(f.borrower).Equal(decimal.NewFromInt(2000)))
	assert.True(t, f.ledger.BalanceOf(f.pool.Address()).Equal(decimal.NewFromInt(2000)))

	events := f.events.Events()
	require.Len(t, events, 1)
	borrowed, ok := events[0].(core.Borrowed)
	require.True(t, ok)
	assert.Equal(t, f.borrower, borrowed.Account)
	assert.Equal(t, recipient, borrowed.Recipient)
	assert.True(t, borrowed.DepositRequired.Equal(decimal.NewFromInt(2000)))
	assert.True(t, borrowed.Amount.Equal(decimal.NewFromInt(1000)))
}

func TestBorrow_RefundsExcess(t *testing.T) {
	f := newFixture(t, 10_000, 2500)

	err := f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), f.borrower, decimal.NewFromInt(2500))
	require.NoError(t, err)

	// Only the required 2000 is retained.
	assert.True(t, f.ledger.BalanceOf(f.borrower).Equal(decimal.NewFromInt(500)))
	assert.True(t, f.pool.DepositOf(f.borrower).Equal(decimal.NewFromInt(2000)))
}

func TestBorrow_DepositsAccumulate(t *testing.T) {
	f := newFixture(t, 10_000, 10_000)

	for i := 0; i < 3; i++ {
		err := f.pool.Borrow(f.borrower, decimal.NewFromInt(100), f.borrower, decimal.NewFromInt(200))
		require.NoError(t, err)
	}
	assert.True(t, f.pool.DepositOf(f.borrower).Equal(decimal.NewFromInt(600)))
}

func TestBorrow_InvalidAmount(t *testing.T) {
	f := newFixture(t, 10_000, 1000)

	err := f.pool.Borrow(f.borrower, decimal.Zero, f.borrower, decimal.NewFromInt(1000))
	require.ErrorIs(t, err, ErrInvalidAmount)

	err = f.pool.Borrow(f.borrower, decimal.NewFromInt(-5), f.borrower, decimal.NewFromInt(1000))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBorrow_TransferFailedRollsBack(t *testing.T) {
	f := newFixture(t, 500, 5000)

	// Collateral clears but the pool cannot cover the draw.
	err := f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), f.borrower, decimal.NewFromInt(2000))
	require.ErrorIs(t, err, ErrTransferFailed)

	// Round trip: collateral, balances and deposits all as before.
	assert.True(t, f.ledger.BalanceOf(f.borrower).Equal(decimal.NewFromInt(5000)))
	assert.True(t, f.ledger.BalanceOf(f.pool.Address()).IsZero())
	assert.True(t, f.pool.DepositOf(f.borrower).IsZero())
	assert.True(t, f.token.BalanceOf(f.pool.Address()).Equal(decimal.NewFromInt(500)))
}

func TestBorrow_InsufficientPaymentFundsRollsBack(t *testing.T) {
	f := newFixture(t, 10_000, 1500)

	// Claims a payment of 2000 while only holding 1500.
	err := f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), f.borrower, decimal.NewFromInt(2000))
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)
	assert.True(t, f.ledger.BalanceOf(f.borrower).Equal(decimal.NewFromInt(1500)))
	assert.True(t, f.pool.DepositOf(f.borrower).IsZero())
}

func TestBorrow_RefundRejectedRollsBack(t *testing.T) {
	f := newFixture(t, 10_000, 3000)

	f.ledger.SetReceiveHook(f.borrower, func(core.Address, decimal.Decimal) error {
		return assert.AnError
	})

	err := f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), f.borrower, decimal.NewFromInt(2500))
	require.ErrorIs(t, err, bank.ErrTransferRejected)

	assert.True(t, f.ledger.BalanceOf(f.borrower).Equal(decimal.NewFromInt(3000)))
	assert.True(t, f.pool.DepositOf(f.borrower).IsZero())
	assert.True(t, f.token.BalanceOf(f.borrower).IsZero())
}

func TestBorrow_ReentrancyRejected(t *testing.T) {
	f := newFixture(t, 10_000, 5000)

	var inner error
	f.ledger.SetReceiveHook(f.borrower, func(core.Address, decimal.Decimal) error {
		inner = f.pool.Borrow(f.borrower, decimal.NewFromInt(1), f.borrower, decimal.NewFromInt(100))
		return inner
	})

	err := f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), f.borrower, decimal.NewFromInt(2500))
	require.ErrorIs(t, err, bank.ErrTransferRejected)
	require.ErrorIs(t, inner, ErrReentrantCall)

	assert.True(t, f.ledger.BalanceOf(f.borrower).Equal(decimal.NewFromInt(5000)))
	assert.True(t, f.pool.DepositOf(f.borrower).IsZero())
}

// TestBorrow_ReserveManipulation documents the manipulation surface: the
// implied price is a live read, so skewing the reserve's ratio right
// before borrowing collapses the required collateral.
func TestBorrow_ReserveManipulation(t *testing.T) {
	f := newFixture(t, 100_000, 10_000)

	honest, err := f.pool.RequiredCollateral(decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, honest.Equal(decimal.NewFromInt(2000)))

	// Dump asset into the reserve: 1000 in against 1000/1000 moves the
	// balances to 2000 asset / 500 reference.
	_, err = f.reserve.SwapAssetForReference(decimal.NewFromInt(1000))
	require.NoError(t, err)

	skewed, err := f.pool.RequiredCollateral(decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, skewed.LessThan(honest))
	assert.True(t, skewed.Equal(decimal.NewFromInt(500)))

	// The same draw now clears with a quarter of the honest collateral.
	err = f.pool.Borrow(f.borrower, decimal.NewFromInt(1000), f.borrower, skewed)
	require.NoError(t, err)
	assert.True(t, f.token.BalanceOf(f.borrower).Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.pool.DepositOf(f.borrower).Equal(skewed))
}
