package feeds

import (
	"sync"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDICATORS - Technical indicators over observed prices
// ═══════════════════════════════════════════════════════════════════════════════

// DefaultSeriesCapacity bounds how many prices a PriceSeries keeps
const DefaultSeriesCapacity = 200

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// PriceSeries is a bounded, oldest-first price history
type PriceSeries struct {
	mu       sync.RWMutex
	capacity int
	prices   []decimal.Decimal
}

// NewPriceSeries creates a series holding at most capacity prices
func NewPriceSeries(capacity int) *PriceSeries {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &PriceSeries{
		capacity: capacity,
		prices:   make([]decimal.Decimal, 0, capacity),
	}
}

// Update appends a positive price, evicting the oldest when full
func (ps *PriceSeries) Update(price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.prices = append(ps.prices, price)
	if len(ps.prices) > ps.capacity {
		ps.prices = ps.prices[1:]
	}
}

// Len returns the number of stored prices
func (ps *PriceSeries) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.prices)
}

// Reset drops all prices
func (ps *PriceSeries) Reset() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.prices = ps.prices[:0]
}

// last returns a copy of the newest n prices, or false if fewer exist
func (ps *PriceSeries) last(n int) ([]decimal.Decimal, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if n <= 0 || len(ps.prices) < n {
		return nil, false
	}
	out := make([]decimal.Decimal, n)
	copy(out, ps.prices[len(ps.prices)-n:])
	return out, true
}

func (ps *PriceSeries) all() []decimal.Decimal {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]decimal.Decimal, len(ps.prices))
	copy(out, ps.prices)
	return out
}

// SMA returns the simple moving average of the last period prices
func (ps *PriceSeries) SMA(period int) (decimal.Decimal, bool) {
	window, ok := ps.last(period)
	if !ok {
		return decimal.Zero, false
	}
	return mean(window), true
}

// RSI returns the relative strength index over the last period changes
func (ps *PriceSeries) RSI(period int) (decimal.Decimal, bool) {
	window, ok := ps.last(period + 1)
	if !ok {
		return decimal.Zero, false
	}

	gains, losses := decimal.Zero, decimal.Zero
	for i := 1; i < len(window); i++ {
		change := window[i].Sub(window[i-1])
		if change.IsPositive() {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Abs())
		}
	}

	if losses.IsZero() {
		return hundred, true
	}
	// RSI = 100 - 100 / (1 + avgGain/avgLoss); the period cancels out
	rs := gains.Div(losses)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs))), true
}

// MACD returns EMA(fast) - EMA(slow) over the whole series
func (ps *PriceSeries) MACD(fast, slow int) (decimal.Decimal, bool) {
	prices := ps.all()
	if fast <= 0 || slow <= fast || len(prices) < slow {
		return decimal.Zero, false
	}

	fastEMA, slowEMA := NewEMA(fast), NewEMA(slow)
	for _, p := range prices {
		fastEMA.Update(p)
		slowEMA.Update(p)
	}
	return fastEMA.Value().Sub(slowEMA.Value()), true
}

// Bollinger returns the middle band and the bands k standard deviations away
func (ps *PriceSeries) Bollinger(period int, k decimal.Decimal) (upper, middle, lower decimal.Decimal, ok bool) {
	window, ok := ps.last(period)
	if !ok {
		return decimal.Zero, decimal.Zero, decimal.Zero, false
	}
	middle = mean(window)
	width := stdDev(window, middle).Mul(k)
	return middle.Add(width), middle, middle.Sub(width), true
}

// ═══════════════════════════════════════════════════════════════════════════════
// EMA - Exponential Moving Average
// ═══════════════════════════════════════════════════════════════════════════════

// EMA calculates exponential moving average
type EMA struct {
	mu          sync.RWMutex
	multiplier  decimal.Decimal
	value       decimal.Decimal
	initialized bool
}

// NewEMA creates a new EMA calculator
func NewEMA(period int) *EMA {
	// Multiplier = 2 / (period + 1)
	return &EMA{
		multiplier: two.Div(decimal.NewFromInt(int64(period + 1))),
	}
}

// Update adds a new price and recalculates EMA
func (e *EMA) Update(price decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		e.value = price
		e.initialized = true
		return
	}

	// EMA = (price - prevEMA) * multiplier + prevEMA
	e.value = price.Sub(e.value).Mul(e.multiplier).Add(e.value)
}

// Value returns current EMA value
func (e *EMA) Value() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func mean(prices []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices))))
}

// stdDev is the population standard deviation around m
func stdDev(prices []decimal.Decimal, m decimal.Decimal) decimal.Decimal {
	variance := decimal.Zero
	for _, p := range prices {
		diff := p.Sub(m)
		variance = variance.Add(diff.Mul(diff))
	}
	return sqrt(variance.Div(decimal.NewFromInt(int64(len(prices)))))
}

// sqrt calculates square root using Newton's method
func sqrt(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() || d.IsNegative() {
		return decimal.Zero
	}

	x := d
	for i := 0; i < 20; i++ {
		// x = (x + d/x) / 2
		x = x.Add(d.Div(x)).Div(two)
	}
	return x
}
