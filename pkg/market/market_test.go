package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firattale/damn-vulnerable-defi/pkg/assets"
	"github.com/firattale/damn-vulnerable-defi/pkg/bank"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
)

// stubOracle serves a fixed, settable consensus price.
type stubOracle struct {
	price decimal.Decimal
}

func (s *stubOracle) ConsensusPrice(string) (decimal.Decimal, error) {
	return s.price, nil
}

type fixture struct {
	market *Marketplace
	oracle *stubOracle
	ledger *bank.Ledger
	buyer  core.Address
	events *core.Recorder
}

func newFixture(t *testing.T, price, buyerFunds int64) *fixture {
	t.Helper()

	oracle := &stubOracle{price: decimal.NewFromInt(price)}
	ledger := bank.NewLedger()
	events := core.NewRecorder()
	buyer := core.NewAddress()
	ledger.Mint(buyer, decimal.NewFromInt(buyerFunds))

	m := New(core.NewAddress(), "DVNFT", oracle, ledger, events, logging.NewNoopLogger())
	return &fixture{market: m, oracle: oracle, ledger: ledger, buyer: buyer, events: events}
}

func TestBuy_RefundsExcess(t *testing.T) {
	f := newFixture(t, 100, 150)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(150))
	require.NoError(t, err)

	owner, err := f.market.Assets().OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, f.buyer, owner)

	// Exactly price retained, exactly payment-price refunded.
	assert.True(t, f.ledger.BalanceOf(f.market.Address()).Equal(decimal.NewFromInt(100)))
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(50)))

	events := f.events.Events()
	require.Len(t, events, 1)
	bought, ok := events[0].(core.Bought)
	require.True(t, ok)
	assert.Equal(t, f.buyer, bought.Buyer)
	assert.Equal(t, id, bought.ID)
	assert.True(t, bought.Price.Equal(decimal.NewFromInt(100)))
}

func TestBuy_ExactPayment(t *testing.T) {
	f := newFixture(t, 100, 100)

	_, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.True(t, f.ledger.BalanceOf(f.buyer).IsZero())
	assert.True(t, f.ledger.BalanceOf(f.market.Address()).Equal(decimal.NewFromInt(100)))
}

func TestBuy_InvalidPayment(t *testing.T) {
	f := newFixture(t, 100, 1000)

	for _, payment := range []int64{0, 1, 99} {
		_, err := f.market.Buy(f.buyer, decimal.NewFromInt(payment))
		require.ErrorIs(t, err, ErrInvalidPayment, "payment %d", payment)
	}

	// Failed buys leave every ledger untouched.
	assert.Equal(t, 0, f.market.Assets().Count())
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.ledger.BalanceOf(f.market.Address()).IsZero())
	assert.Empty(t, f.events.Events())
}

func TestBuy_InsufficientBuyerBalanceRollsBack(t *testing.T) {
	f := newFixture(t, 100, 120)

	// Payment clears the price check but exceeds the buyer's balance.
	_, err := f.market.Buy(f.buyer, decimal.NewFromInt(130))
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)

	assert.Equal(t, 0, f.market.Assets().Count())
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(120)))
}

func TestBuy_RefundRejectedRollsBack(t *testing.T) {
	f := newFixture(t, 100, 150)

	f.ledger.SetReceiveHook(f.buyer, func(core.Address, decimal.Decimal) error {
		return assert.AnError
	})

	_, err := f.market.Buy(f.buyer, decimal.NewFromInt(150))
	require.ErrorIs(t, err, bank.ErrTransferRejected)

	// Round trip: state after the reverted call equals state before it.
	assert.Equal(t, 0, f.market.Assets().Count())
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(150)))
	assert.True(t, f.ledger.BalanceOf(f.market.Address()).IsZero())
}

func TestSell_RoundTrip(t *testing.T) {
	f := newFixture(t, 100, 100)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)

	require.NoError(t, f.market.Assets().Approve(f.buyer, id, f.market.Address()))
	require.NoError(t, f.market.Sell(f.buyer, id))

	assert.False(t, f.market.Assets().Exists(id))
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(100)))
	assert.True(t, f.ledger.BalanceOf(f.market.Address()).IsZero())

	events := f.events.Events()
	require.Len(t, events, 2)
	sold, ok := events[1].(core.Sold)
	require.True(t, ok)
	assert.Equal(t, id, sold.ID)

	// A burned id can never be sold again.
	err = f.market.Sell(f.buyer, id)
	require.ErrorIs(t, err, assets.ErrUnknownAsset)
}

func TestSell_NotOwner(t *testing.T) {
	f := newFixture(t, 100, 100)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)

	err = f.market.Sell(core.NewAddress(), id)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestSell_NotApproved(t *testing.T) {
	f := newFixture(t, 100, 100)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)

	err = f.market.Sell(f.buyer, id)
	require.ErrorIs(t, err, ErrNotApproved)
	assert.True(t, f.market.Assets().Exists(id))
}

func TestSell_InsufficientFunds(t *testing.T) {
	f := newFixture(t, 100, 100)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, f.market.Assets().Approve(f.buyer, id, f.market.Address()))

	// The consensus price moves above what the marketplace retained.
	f.oracle.price = decimal.NewFromInt(150)

	err = f.market.Sell(f.buyer, id)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, f.market.Assets().Exists(id))
}

func TestSell_PayoutRejectedRollsBack(t *testing.T) {
	f := newFixture(t, 100, 100)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, f.market.Assets().Approve(f.buyer, id, f.market.Address()))

	f.ledger.SetReceiveHook(f.buyer, func(core.Address, decimal.Decimal) error {
		return assert.AnError
	})

	err = f.market.Sell(f.buyer, id)
	require.ErrorIs(t, err, bank.ErrTransferRejected)

	// The burn is undone along with the balances: the seller still owns
	// the asset and the approval survives.
	owner, err := f.market.Assets().OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, f.buyer, owner)
	approved, err := f.market.Assets().ApprovedFor(id)
	require.NoError(t, err)
	assert.Equal(t, f.market.Address(), approved)
	assert.True(t, f.ledger.BalanceOf(f.market.Address()).Equal(decimal.NewFromInt(100)))
	assert.True(t, f.ledger.BalanceOf(f.buyer).IsZero())
}

func TestBuy_ReentrancyRejected(t *testing.T) {
	f := newFixture(t, 100, 500)

	// The attacker's receive hook fires on the refund and tries to buy
	// again mid-call. The in-progress flag rejects the inner call; its
	// failure propagates through the refund and reverts the outer buy.
	var inner error
	f.ledger.SetReceiveHook(f.buyer, func(core.Address, decimal.Decimal) error {
		_, inner = f.market.Buy(f.buyer, decimal.NewFromInt(100))
		return inner
	})

	_, err := f.market.Buy(f.buyer, decimal.NewFromInt(150))
	require.ErrorIs(t, err, bank.ErrTransferRejected)
	require.ErrorIs(t, inner, ErrReentrantCall)

	assert.Equal(t, 0, f.market.Assets().Count())
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(500)))
}

func TestSell_ReentrancyRejected(t *testing.T) {
	f := newFixture(t, 100, 200)

	id, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)
	second, err := f.market.Buy(f.buyer, decimal.NewFromInt(100))
	require.NoError(t, err)

	require.NoError(t, f.market.Assets().Approve(f.buyer, id, f.market.Address()))
	require.NoError(t, f.market.Assets().Approve(f.buyer, second, f.market.Address()))

	// Double-sell attempt: the payout hook tries to sell the second
	// asset while the first sale is still in progress.
	var inner error
	f.ledger.SetReceiveHook(f.buyer, func(core.Address, decimal.Decimal) error {
		inner = f.market.Sell(f.buyer, second)
		return nil
	})

	require.NoError(t, f.market.Sell(f.buyer, id))
	require.ErrorIs(t, inner, ErrReentrantCall)

	// Only the first sale settled.
	assert.False(t, f.market.Assets().Exists(id))
	assert.True(t, f.market.Assets().Exists(second))
	assert.True(t, f.ledger.BalanceOf(f.buyer).Equal(decimal.NewFromInt(100)))
}
