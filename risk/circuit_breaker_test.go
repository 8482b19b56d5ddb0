package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCircuitBreakerTripsAndCoolsDown(t *testing.T) {
	now := time.Date(2025, 4, 4, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordStopLoss(decimal.NewFromInt(-3))
	if !cb.Allow() {
		t.Fatal("one stop should not trip the breaker")
	}

	cb.RecordStopLoss(decimal.NewFromInt(-2))
	if cb.Allow() {
		t.Fatal("expected breaker to block after two consecutive stops")
	}

	stops, total, tripped, reason := cb.GetStats()
	if stops != 2 || !total.Equal(decimal.NewFromInt(5)) || !tripped || reason == "" {
		t.Errorf("stats = %d %s %v %q", stops, total, tripped, reason)
	}

	now = now.Add(2 * time.Minute)
	if !cb.Allow() {
		t.Fatal("expected breaker to reset after cooldown")
	}
	if cb.IsTripped() {
		t.Error("breaker still tripped after reset")
	}
}

func TestCircuitBreakerEntryResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	cb.RecordStopLoss(decimal.NewFromInt(-1))
	cb.RecordEntry()
	cb.RecordStopLoss(decimal.NewFromInt(-1))

	if !cb.Allow() {
		t.Error("streak should have been reset by the entry")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Hour)
	for i := 0; i < 10; i++ {
		cb.RecordStopLoss(decimal.NewFromInt(-1))
	}
	if !cb.Allow() {
		t.Error("zero max stops must disable the breaker")
	}

	var nilBreaker *CircuitBreaker
	if !nilBreaker.Allow() {
		t.Error("nil breaker must allow")
	}
}
