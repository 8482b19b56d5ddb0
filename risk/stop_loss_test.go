package risk

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func position(t *testing.T, action types.Action, entry, amount string) *types.Position {
	t.Helper()
	pos, err := types.NewPosition("pos-1", "SOL/USDC", action, d(entry), d(amount), time.Now())
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	return pos
}

func cfg(enabled bool, pct string) types.StopLossConfig {
	return types.StopLossConfig{Enabled: enabled, Percentage: d(pct)}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name   string
		action types.Action
		entry  string
		pct    string
		want   string
	}{
		{"long 2.5%", types.Buy, "100", "2.5", "97.5"},
		{"short 2.5%", types.Sell, "100", "2.5", "102.5"},
		{"long 10%", types.Buy, "150", "10", "135"},
		{"short 10%", types.Sell, "150", "10", "165"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Threshold(position(t, tt.action, tt.entry, "1"), cfg(true, tt.pct))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Threshold = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestThresholdRejectsInvalidAction(t *testing.T) {
	pos := &types.Position{ID: "x", Pair: "SOL/USDC", Action: "hold", EntryPrice: d("100"), Amount: d("1")}

	if _, err := Threshold(pos, cfg(true, "2.5")); !errors.Is(err, types.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if IsTriggered(pos, d("1"), cfg(true, "2.5")) {
		t.Error("invalid action must never trigger")
	}
}

func TestIsTriggered(t *testing.T) {
	tests := []struct {
		name    string
		action  types.Action
		entry   string
		price   string
		enabled bool
		want    bool
	}{
		// Scenario A
		{"long at boundary", types.Buy, "100", "97.5", true, true},
		{"long just above boundary", types.Buy, "100", "97.51", true, false},
		{"long far below", types.Buy, "100", "50", true, true},
		{"long in profit", types.Buy, "100", "120", true, false},
		// Scenario B
		{"long disabled", types.Buy, "100", "97.5", false, false},
		{"long disabled crash", types.Buy, "100", "1", false, false},
		// Scenario C
		{"short at boundary", types.Sell, "100", "102.5", true, true},
		{"short just below boundary", types.Sell, "100", "102.49", true, false},
		{"short in profit", types.Sell, "100", "80", true, false},
		{"short disabled", types.Sell, "100", "200", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := position(t, tt.action, tt.entry, "1")
			if got := IsTriggered(pos, d(tt.price), cfg(tt.enabled, "2.5")); got != tt.want {
				t.Errorf("IsTriggered(%s) = %v, want %v", tt.price, got, tt.want)
			}
		})
	}
}

func TestThresholdMonotonicInPercentage(t *testing.T) {
	long := position(t, types.Buy, "100", "1")
	short := position(t, types.Sell, "100", "1")

	pcts := []string{"0.5", "1", "2.5", "5", "10", "50"}
	prevLong, _ := Threshold(long, cfg(true, pcts[0]))
	prevShort, _ := Threshold(short, cfg(true, pcts[0]))

	for _, pct := range pcts[1:] {
		l, _ := Threshold(long, cfg(true, pct))
		s, _ := Threshold(short, cfg(true, pct))
		if !l.LessThan(prevLong) {
			t.Errorf("long threshold at %s%% = %s, not below %s", pct, l, prevLong)
		}
		if !s.GreaterThan(prevShort) {
			t.Errorf("short threshold at %s%% = %s, not above %s", pct, s, prevShort)
		}
		prevLong, prevShort = l, s
	}
}

func TestPotentialLoss(t *testing.T) {
	tests := []struct {
		name   string
		action types.Action
		entry  string
		amount string
		pct    string
		want   string
	}{
		{"scenario C short", types.Sell, "100", "2", "2.5", "5"},
		{"long same size", types.Buy, "100", "2", "2.5", "5"},
		{"fractional", types.Buy, "152.34", "0.5", "2.5", "1.90425"},
		{"fractional short", types.Sell, "152.34", "0.5", "2.5", "1.90425"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PotentialLoss(position(t, tt.action, tt.entry, tt.amount), cfg(true, tt.pct))
			if got.IsNegative() {
				t.Fatalf("PotentialLoss negative: %s", got)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("PotentialLoss = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatTriggerMessage(t *testing.T) {
	long := position(t, types.Buy, "100", "1")
	msg := FormatTriggerMessage(long, d("97.456"), cfg(true, "2.5"))
	for _, want := range []string{"SOL/USDC", "dropped", "97.46", "2.5%", "100.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	short := position(t, types.Sell, "100", "1")
	msg = FormatTriggerMessage(short, d("102.5"), cfg(true, "2.5"))
	if !strings.Contains(msg, "increased") || !strings.Contains(msg, "102.50") {
		t.Errorf("short message %q", msg)
	}
}

func TestRealizedPnL(t *testing.T) {
	long := position(t, types.Buy, "100", "2")
	if got := RealizedPnL(long, d("97.5")); !got.Equal(d("-5")) {
		t.Errorf("long pnl = %s, want -5", got)
	}

	short := position(t, types.Sell, "100", "2")
	if got := RealizedPnL(short, d("102.5")); !got.Equal(d("-5")) {
		t.Errorf("short pnl = %s, want -5", got)
	}
	if got := RealizedPnL(short, d("90")); !got.Equal(d("20")) {
		t.Errorf("short profit = %s, want 20", got)
	}
}
