// Package notify fans position lifecycle and risk events out to registered
// callbacks, the same pattern the original bot used to wire signal/trade
// alerts into Telegram without coupling the trading core to the transport.
package notify

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/types"
)

// EventKind discriminates the event payload.
type EventKind string

const (
	EventPositionOpened    EventKind = "position_opened"
	EventPositionClosed    EventKind = "position_closed"
	EventExitTriggered     EventKind = "exit_triggered"
	EventRebalanced        EventKind = "rebalanced"
	EventKillSwitchTripped EventKind = "kill_switch_tripped"
	EventCircuitBreaker    EventKind = "circuit_breaker_tripped"
)

// Event is one lifecycle notification.
type Event struct {
	Kind      EventKind
	At        time.Time
	Position  *types.CombinedPosition
	Decision  *types.ExitDecision
	Rebalance *types.RebalanceResult
	Reason    string
	PnLUSD    decimal.Decimal
}

// Handler receives published events; it must not block for long since it
// runs synchronously on the publisher's goroutine.
type Handler func(Event)

// Bus is a simple synchronous fan-out of trading events to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler invoked for every published event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish fans out an event to every subscriber in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// PositionOpened publishes an EventPositionOpened event.
func (b *Bus) PositionOpened(position *types.CombinedPosition) {
	b.Publish(Event{Kind: EventPositionOpened, At: time.Now(), Position: position})
}

// PositionClosed publishes an EventPositionClosed event.
func (b *Bus) PositionClosed(position *types.CombinedPosition, pnlUSD decimal.Decimal) {
	b.Publish(Event{Kind: EventPositionClosed, At: time.Now(), Position: position, PnLUSD: pnlUSD})
}

// ExitTriggered publishes an EventExitTriggered event.
func (b *Bus) ExitTriggered(position *types.CombinedPosition, decision types.ExitDecision) {
	b.Publish(Event{Kind: EventExitTriggered, At: time.Now(), Position: position, Decision: &decision})
}

// Rebalanced publishes an EventRebalanced event.
func (b *Bus) Rebalanced(position *types.CombinedPosition, result types.RebalanceResult) {
	b.Publish(Event{Kind: EventRebalanced, At: time.Now(), Position: position, Rebalance: &result})
}

// KillSwitchTripped publishes an EventKillSwitchTripped event.
func (b *Bus) KillSwitchTripped(reason string) {
	b.Publish(Event{Kind: EventKillSwitchTripped, At: time.Now(), Reason: reason})
}

// CircuitBreakerTripped publishes an EventCircuitBreaker event.
func (b *Bus) CircuitBreakerTripped(reason string) {
	b.Publish(Event{Kind: EventCircuitBreaker, At: time.Now(), Reason: reason})
}
