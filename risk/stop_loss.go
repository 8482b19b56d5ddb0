package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STOP LOSS - Direction-aware exit thresholds
// ═══════════════════════════════════════════════════════════════════════════════
//
// Long (buy):  threshold = entry * (1 - pct/100), exit when price <= threshold
// Short (sell): threshold = entry * (1 + pct/100), exit when price >= threshold
//
// All functions are pure. The engine owns positions; this file only decides.
//
// ═══════════════════════════════════════════════════════════════════════════════

var hundred = decimal.NewFromInt(100)

// Threshold computes the stop-loss price for a position
func Threshold(pos *types.Position, cfg types.StopLossConfig) (decimal.Decimal, error) {
	frac := cfg.Percentage.Div(hundred)

	switch pos.Action {
	case types.Buy:
		return pos.EntryPrice.Mul(decimal.NewFromInt(1).Sub(frac)), nil
	case types.Sell:
		return pos.EntryPrice.Mul(decimal.NewFromInt(1).Add(frac)), nil
	}
	return decimal.Zero, fmt.Errorf("stop loss threshold: %w: %q", types.ErrInvalidAction, string(pos.Action))
}

// IsTriggered reports whether currentPrice has crossed the stop. The boundary
// is inclusive: a price exactly at the threshold triggers.
func IsTriggered(pos *types.Position, currentPrice decimal.Decimal, cfg types.StopLossConfig) bool {
	if !cfg.Enabled {
		return false
	}

	threshold, err := Threshold(pos, cfg)
	if err != nil {
		return false
	}

	if pos.Action == types.Buy {
		return currentPrice.LessThanOrEqual(threshold)
	}
	return currentPrice.GreaterThanOrEqual(threshold)
}

// FormatTriggerMessage describes a triggered stop for display
func FormatTriggerMessage(pos *types.Position, currentPrice decimal.Decimal, cfg types.StopLossConfig) string {
	direction := "increased"
	if pos.Action == types.Buy {
		direction = "dropped"
	}

	return fmt.Sprintf("Stop loss triggered for %s: Price %s to %s (%s%% from entry price of %s)",
		pos.Pair,
		direction,
		currentPrice.StringFixed(2),
		cfg.Percentage.String(),
		pos.EntryPrice.StringFixed(2),
	)
}

// PotentialLoss is the loss if the position closes exactly at its stop.
// Always non-negative and equal to entry * pct/100 * amount for both sides.
func PotentialLoss(pos *types.Position, cfg types.StopLossConfig) decimal.Decimal {
	threshold, err := Threshold(pos, cfg)
	if err != nil {
		return decimal.Zero
	}
	return threshold.Sub(pos.EntryPrice).Abs().Mul(pos.Amount)
}

// RealizedPnL is the signed result of closing pos at exitPrice
func RealizedPnL(pos *types.Position, exitPrice decimal.Decimal) decimal.Decimal {
	diff := exitPrice.Sub(pos.EntryPrice)
	if pos.Action == types.Sell {
		diff = diff.Neg()
	}
	return diff.Mul(pos.Amount)
}
