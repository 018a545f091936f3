package core

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Event is an observable domain event emitted by a component.
type Event interface {
	// Kind returns the event name, e.g. "PriceUpdated".
	Kind() string
}

// PriceUpdated is emitted when a trusted source overwrites its price.
type PriceUpdated struct {
	Source Address         `json:"source"`
	Symbol string          `json:"symbol"`
	Old    decimal.Decimal `json:"old"`
	New    decimal.Decimal `json:"new"`
}

// Kind implements Event.
func (PriceUpdated) Kind() string { return "PriceUpdated" }

// Bought is emitted when the marketplace mints an asset to a buyer.
type Bought struct {
	Buyer Address         `json:"buyer"`
	ID    uint64          `json:"id"`
	Price decimal.Decimal `json:"price"`
}

// Kind implements Event.
func (Bought) Kind() string { return "Bought" }

// Sold is emitted when the marketplace burns an asset and pays the seller.
type Sold struct {
	Seller Address         `json:"seller"`
	ID     uint64          `json:"id"`
	Price  decimal.Decimal `json:"price"`
}

// Kind implements Event.
func (Sold) Kind() string { return "Sold" }

// Borrowed is emitted when the lending pool releases a draw.
type Borrowed struct {
	Account         Address         `json:"account"`
	Recipient       Address         `json:"recipient"`
	DepositRequired decimal.Decimal `json:"deposit_required"`
	Amount          decimal.Decimal `json:"amount"`
}

// Kind implements Event.
func (Borrowed) Kind() string { return "Borrowed" }

// Sink receives events from components. Implementations must not call back
// into the emitting component.
type Sink interface {
	Emit(Event)
}

// Emit sends an event to the sink, tolerating a nil sink.
func Emit(s Sink, e Event) {
	if s != nil {
		s.Emit(e)
	}
}

// Bus fans events out to channel subscribers. Delivery is non-blocking: a
// subscriber that cannot keep up misses events rather than stalling the
// emitting component mid-call.
type Bus struct {
	mu   sync.RWMutex
	subs []chan<- Event
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a channel to receive future events. The channel
// should be buffered.
func (b *Bus) Subscribe(ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
}

// Emit implements Sink.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Recorder collects every emitted event, preserving order. Used in tests to
// assert on observable behavior.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of all recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
