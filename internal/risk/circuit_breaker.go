package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerType identifies which risk condition tripped the breaker. Each
// type trips and cools down on its own timer; while any type is tripped,
// CanExecute blocks new entries.
type BreakerType string

const (
	BreakerLongHealth        BreakerType = "LONG_HEALTH"
	BreakerShortMargin       BreakerType = "SHORT_MARGIN"
	BreakerLSTDepeg          BreakerType = "LST_DEPEG"
	BreakerPriceDeviation    BreakerType = "PRICE_DEVIATION"
	BreakerFundingVolatility BreakerType = "FUNDING_VOLATILITY"
)

type breakerState struct {
	tripped   bool
	trippedAt time.Time
	reason    string
}

// CircuitBreaker halts trading by risk-condition type: each type trips and
// cools down on its own timer rather than sharing one global trip/reset.
type CircuitBreaker struct {
	mu       sync.RWMutex
	cooldown time.Duration
	states   map[BreakerType]*breakerState
}

// NewCircuitBreaker constructs a breaker with the given per-type cooldown.
func NewCircuitBreaker(cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{cooldown: cooldown, states: make(map[BreakerType]*breakerState)}
}

// Trip records a new trip for the given breaker type.
func (cb *CircuitBreaker) Trip(t BreakerType, reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.states[t] = &breakerState{tripped: true, trippedAt: time.Now(), reason: reason}
	log.Warn().
		Str("breaker", string(t)).
		Str("reason", reason).
		Dur("cooldown", cb.cooldown).
		Msg("🚨 circuit breaker tripped")
}

// CheckAndRecover clears any tripped breaker whose cooldown has elapsed and
// returns the types that recovered this call.
func (cb *CircuitBreaker) CheckAndRecover() []BreakerType {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var recovered []BreakerType
	for t, s := range cb.states {
		if s.tripped && time.Since(s.trippedAt) > cb.cooldown {
			s.tripped = false
			recovered = append(recovered, t)
			log.Info().Str("breaker", string(t)).Msg("✅ circuit breaker reset after cooldown")
		}
	}
	return recovered
}

// Active reports whether any breaker is currently tripped, and the reason
// for the first one found.
func (cb *CircuitBreaker) Active() (bool, string) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	for t, s := range cb.states {
		if s.tripped {
			return true, string(t) + ": " + s.reason
		}
	}
	return false, ""
}

// IsTripped reports whether the specific breaker type is currently tripped.
func (cb *CircuitBreaker) IsTripped(t BreakerType) bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	s, ok := cb.states[t]
	return ok && s.tripped
}

// ForceReset manually clears every breaker, for operator intervention.
func (cb *CircuitBreaker) ForceReset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.states = make(map[BreakerType]*breakerState)
	log.Info().Msg("circuit breaker manually reset")
}

// CanExecute composes the pause controller's scope gate with the circuit
// breaker's trip state: op must clear both before it is allowed to run.
func CanExecute(pauses *PauseController, breakers *CircuitBreaker, op string) (bool, string) {
	if paused, reason := pauses.CheckPaused(op); paused {
		return false, "paused: " + reason
	}
	if active, reason := breakers.Active(); active {
		return false, "circuit breaker: " + reason
	}
	return true, ""
}
