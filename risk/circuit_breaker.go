package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CIRCUIT BREAKER - Pause new entries after consecutive stop-loss exits
// ═══════════════════════════════════════════════════════════════════════════════

type CircuitBreaker struct {
	mu sync.RWMutex

	// Configuration
	maxConsecutiveStops int // 0 disables the breaker
	cooldownDuration    time.Duration

	// State
	consecutiveStops int
	stopLossTotal    decimal.Decimal
	tripped          bool
	trippedAt        time.Time
	reason           string

	now func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(maxStops int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxConsecutiveStops: maxStops,
		cooldownDuration:    cooldown,
		now:                 time.Now,
	}
}

// Allow returns false while the breaker is tripped and cooling down
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.tripped {
		return true
	}

	if cb.now().Sub(cb.trippedAt) > cb.cooldownDuration {
		cb.reset()
		log.Info().Msg("✅ Circuit breaker reset after cooldown")
		return true
	}
	return false
}

// RecordStopLoss records a forced exit and its realized loss
func (cb *CircuitBreaker) RecordStopLoss(loss decimal.Decimal) {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveStops++
	cb.stopLossTotal = cb.stopLossTotal.Add(loss.Abs())

	if cb.maxConsecutiveStops > 0 && cb.consecutiveStops >= cb.maxConsecutiveStops && !cb.tripped {
		cb.trip("Max consecutive stop losses")
	}
}

// RecordEntry clears the streak once a new position opens cleanly
func (cb *CircuitBreaker) RecordEntry() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveStops = 0
}

// trip activates the circuit breaker
func (cb *CircuitBreaker) trip(reason string) {
	cb.tripped = true
	cb.trippedAt = cb.now()
	cb.reason = reason
	log.Warn().
		Str("reason", reason).
		Int("consecutive_stops", cb.consecutiveStops).
		Str("stop_loss_total", cb.stopLossTotal.StringFixed(2)).
		Dur("cooldown", cb.cooldownDuration).
		Msg("🚨 CIRCUIT BREAKER TRIPPED")
}

// reset clears the circuit breaker state
func (cb *CircuitBreaker) reset() {
	cb.consecutiveStops = 0
	cb.tripped = false
	cb.reason = ""
}

// IsTripped returns current trip state
func (cb *CircuitBreaker) IsTripped() bool {
	if cb == nil {
		return false
	}
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.tripped
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() (consecutiveStops int, stopLossTotal decimal.Decimal, tripped bool, reason string) {
	if cb == nil {
		return 0, decimal.Zero, false, ""
	}
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveStops, cb.stopLossTotal, cb.tripped, cb.reason
}

// ForceReset manually resets the circuit breaker
func (cb *CircuitBreaker) ForceReset() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
	log.Info().Msg("Circuit breaker manually reset")
}
