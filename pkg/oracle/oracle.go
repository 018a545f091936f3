package oracle

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/access"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
	"github.com/firattale/damn-vulnerable-defi/pkg/metrics"
)

// bootstrapState is the one-shot initialization state machine. The only
// transition is stateUninitialized -> stateInitialized and it is
// irreversible: once taken, Bootstrap is permanently unreachable.
type bootstrapState uint8

const (
	stateUninitialized bootstrapState = iota
	stateInitialized
)

// Oracle aggregates price reports from role-authorized sources into a
// single median consensus value per symbol. The consensus is never stored;
// it is recomputed from current state on every query.
type Oracle struct {
	registry   *access.Registry
	sourceRole core.Role
	minSources int

	mu          sync.RWMutex
	state       bootstrapState
	initializer core.Address
	prices      map[core.Address]map[string]decimal.Decimal

	sink   core.Sink
	logger *logging.Logger
}

// New creates an oracle reading trusted-source membership for sourceRole
// from registry. The registry must already hold at least minSources members
// for the role; an oracle below the minimum cannot be constructed.
// initializer is the one-shot bootstrap capability; the zero address means
// the oracle starts with no bootstrap path at all.
func New(registry *access.Registry, sourceRole core.Role, minSources int, initializer core.Address, sink core.Sink, logger *logging.Logger) (*Oracle, error) {
	if minSources < 1 {
		minSources = 1
	}
	if registry.MemberCount(sourceRole) < minSources {
		return nil, fmt.Errorf("new oracle: have %d sources, need %d: %w",
			registry.MemberCount(sourceRole), minSources, ErrNotEnoughSources)
	}

	state := stateUninitialized
	if initializer == core.ZeroAddress {
		state = stateInitialized
	}
	return &Oracle{
		registry:    registry,
		sourceRole:  sourceRole,
		minSources:  minSources,
		state:       state,
		initializer: initializer,
		prices:      make(map[core.Address]map[string]decimal.Decimal),
		sink:        sink,
		logger:      logger,
	}, nil
}

// Bootstrap seeds initial prices at deployment. It is callable exactly
// once, only by the initializer, and consumes that capability: after a
// successful call the state machine is Initialized and every later call
// fails regardless of caller. Not a general update mechanism.
func (o *Oracle) Bootstrap(caller core.Address, sources []core.Address, symbols []string, prices []decimal.Decimal) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != stateUninitialized || caller != o.initializer {
		return fmt.Errorf("bootstrap: %w", ErrUnauthorized)
	}
	if len(sources) != len(symbols) || len(symbols) != len(prices) {
		return fmt.Errorf("bootstrap: %d sources, %d symbols, %d prices: %w",
			len(sources), len(symbols), len(prices), ErrLengthMismatch)
	}
	for _, price := range prices {
		if price.IsNegative() {
			return fmt.Errorf("bootstrap: %w", ErrNegativePrice)
		}
	}

	for i := range sources {
		o.setPrice(sources[i], symbols[i], prices[i])
	}
	o.state = stateInitialized
	o.initializer = core.ZeroAddress

	o.logger.Info("Oracle bootstrapped", "records", len(sources))
	return nil
}

// PostPrice overwrites the caller's reported price for symbol. Only
// accounts holding the trusted-source role may report.
func (o *Oracle) PostPrice(caller core.Address, symbol string, price decimal.Decimal) error {
	if !o.registry.HasRole(o.sourceRole, caller) {
		return fmt.Errorf("post price for %s: %w", symbol, ErrUnauthorized)
	}
	if price.IsNegative() {
		return fmt.Errorf("post price for %s: %w", symbol, ErrNegativePrice)
	}

	o.mu.Lock()
	old := o.priceOf(symbol, caller)
	o.setPrice(caller, symbol, price)
	o.mu.Unlock()

	metrics.RecordPriceUpdate(caller.String(), symbol)
	o.logger.Debug("Price updated",
		"source", caller, "symbol", symbol, "old", old.String(), "new", price.String())
	core.Emit(o.sink, core.PriceUpdated{Source: caller, Symbol: symbol, Old: old, New: price})
	return nil
}

// PriceOf returns source's current reported price for symbol, zero if the
// source never reported.
func (o *Oracle) PriceOf(symbol string, source core.Address) decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.priceOf(symbol, source)
}

// AllPrices returns one price per currently registered trusted source for
// symbol, in the registry's enumeration order. Sources that never reported
// contribute zero.
func (o *Oracle) AllPrices(symbol string) []decimal.Decimal {
	members := o.registry.Members(o.sourceRole)

	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]decimal.Decimal, len(members))
	for i, source := range members {
		out[i] = o.priceOf(symbol, source)
	}
	return out
}

// ConsensusPrice computes the median of all trusted sources' current
// prices for symbol: sort ascending, take the middle element for odd
// counts, the floor-divided average of the two middle elements for even
// counts. Sources that never reported participate as zero, which can pull
// the median down while fewer than half the sources have reported; that is
// observable behavior of this design, not an accident.
func (o *Oracle) ConsensusPrice(symbol string) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordConsensus(symbol, time.Since(start))
	}()

	prices := o.AllPrices(symbol)
	n := len(prices)
	if n == 0 {
		return decimal.Zero, fmt.Errorf("consensus for %s: %w", symbol, ErrNotEnoughSources)
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].LessThan(prices[j])
	})

	if n%2 == 0 {
		sum := prices[n/2-1].Add(prices[n/2])
		return core.FloorDiv(sum, decimal.New(2, 0)), nil
	}
	return prices[n/2], nil
}

// MinSources returns the configured minimum number of trusted sources.
func (o *Oracle) MinSources() int {
	return o.minSources
}

// Sources returns the currently registered trusted sources in enumeration
// order.
func (o *Oracle) Sources() []core.Address {
	return o.registry.Members(o.sourceRole)
}

// priceOf reads a price record without locking. Caller holds o.mu.
func (o *Oracle) priceOf(symbol string, source core.Address) decimal.Decimal {
	if bySymbol, ok := o.prices[source]; ok {
		if price, ok := bySymbol[symbol]; ok {
			return price
		}
	}
	return decimal.Zero
}

// setPrice writes a price record without locking. Caller holds o.mu.
func (o *Oracle) setPrice(source core.Address, symbol string, price decimal.Decimal) {
	bySymbol, ok := o.prices[source]
	if !ok {
		bySymbol = make(map[string]decimal.Decimal)
		o.prices[source] = bySymbol
	}
	bySymbol[symbol] = price
}
