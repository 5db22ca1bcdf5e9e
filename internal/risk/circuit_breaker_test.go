package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerTripsAndRecoversAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(10 * time.Millisecond)

	cb.Trip(BreakerLongHealth, "health factor critical")
	assert.True(t, cb.IsTripped(BreakerLongHealth))
	assert.False(t, cb.IsTripped(BreakerShortMargin))

	active, _ := cb.Active()
	assert.True(t, active)

	assert.Eventually(t, func() bool {
		cb.CheckAndRecover()
		return !cb.IsTripped(BreakerLongHealth)
	}, time.Second, 5*time.Millisecond)
}

func TestCircuitBreakerForceReset(t *testing.T) {
	cb := NewCircuitBreaker(time.Hour)
	cb.Trip(BreakerFundingVolatility, "volatility spike")
	cb.ForceReset()

	assert.False(t, cb.IsTripped(BreakerFundingVolatility))
	active, _ := cb.Active()
	assert.False(t, active)
}

func TestCanExecuteBlocksWhenBreakerTripped(t *testing.T) {
	pauses := NewPauseController("")
	cb := NewCircuitBreaker(time.Hour)
	cb.Trip(BreakerShortMargin, "margin critical")

	ok, reason := CanExecute(pauses, cb, "entry")
	assert.False(t, ok)
	assert.Contains(t, reason, "circuit breaker")
}
