package feeds

import (
	"testing"

	"github.com/shopspring/decimal"
)

func seriesOf(capacity int, prices ...int64) *PriceSeries {
	ps := NewPriceSeries(capacity)
	for _, p := range prices {
		ps.Update(decimal.NewFromInt(p))
	}
	return ps
}

func near(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(decimal.NewFromFloat(1e-9))
}

func TestPriceSeriesEvictsOldest(t *testing.T) {
	ps := seriesOf(3, 1, 2, 3, 4)
	ps.Update(decimal.Zero)

	if ps.Len() != 3 {
		t.Fatalf("len = %d, want 3", ps.Len())
	}
	sma, ok := ps.SMA(3)
	if !ok || !sma.Equal(decimal.NewFromInt(3)) {
		t.Errorf("SMA(3) = %s, %v; want 3", sma, ok)
	}
}

func TestSMANeedsFullWindow(t *testing.T) {
	ps := seriesOf(0, 1, 2)
	if _, ok := ps.SMA(3); ok {
		t.Error("SMA ready with 2 prices")
	}
}

func TestRSI(t *testing.T) {
	rising := seriesOf(0, 1, 2, 3, 4, 5)
	if v, ok := rising.RSI(4); !ok || !v.Equal(decimal.NewFromInt(100)) {
		t.Errorf("rising RSI = %s, %v; want 100", v, ok)
	}

	choppy := seriesOf(0, 1, 2, 1, 2, 1)
	if v, ok := choppy.RSI(4); !ok || !v.Equal(decimal.NewFromInt(50)) {
		t.Errorf("choppy RSI = %s, %v; want 50", v, ok)
	}
}

func TestMACD(t *testing.T) {
	flat := seriesOf(0, 10, 10, 10, 10)
	if v, ok := flat.MACD(2, 3); !ok || !v.IsZero() {
		t.Errorf("flat MACD = %s, %v; want 0", v, ok)
	}

	rising := seriesOf(0, 1, 2, 3, 4, 5, 6)
	if v, ok := rising.MACD(2, 4); !ok || !v.IsPositive() {
		t.Errorf("rising MACD = %s, %v; want positive", v, ok)
	}

	if _, ok := rising.MACD(4, 2); ok {
		t.Error("MACD accepted fast >= slow")
	}
}

func TestBollinger(t *testing.T) {
	ps := seriesOf(0, 1, 4, 5)
	upper, middle, lower, ok := ps.Bollinger(2, decimal.NewFromInt(2))
	if !ok {
		t.Fatal("bollinger not ready")
	}
	if !middle.Equal(decimal.NewFromFloat(4.5)) {
		t.Errorf("middle = %s, want 4.5", middle)
	}
	if !near(upper, decimal.NewFromFloat(5.5)) || !near(lower, decimal.NewFromFloat(3.5)) {
		t.Errorf("bands = %s / %s, want 5.5 / 3.5", upper, lower)
	}
}
