package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// ErrInvalidAction is returned for any direction outside {buy, sell}
var ErrInvalidAction = errors.New("invalid action")

// Action is the trade direction: buy opens a long, sell opens a short
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// ParseAction accepts "buy" or "sell" in any case
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Valid reports whether a is buy or sell
func (a Action) Valid() bool {
	return a == Buy || a == Sell
}

// Opposite returns the direction that closes a position opened with a
func (a Action) Opposite() Action {
	if a == Buy {
		return Sell
	}
	return Buy
}

// TradeKind distinguishes opening from closing trades
type TradeKind string

const (
	KindOpen  TradeKind = "open"
	KindClose TradeKind = "close"
)

// StopLossStrategy labels forced exits in trade history
const StopLossStrategy = "Stop Loss"

// Position represents an open exposure
type Position struct {
	ID         string
	Pair       string
	Action     Action
	EntryPrice decimal.Decimal
	Amount     decimal.Decimal
	Timestamp  time.Time
}

// NewPosition validates fields and builds a position
func NewPosition(id, pair string, action Action, entryPrice, amount decimal.Decimal, ts time.Time) (*Position, error) {
	if id == "" {
		return nil, errors.New("position id is required")
	}
	if pair == "" {
		return nil, errors.New("position pair is required")
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, string(action))
	}
	if !entryPrice.IsPositive() {
		return nil, fmt.Errorf("entry price must be positive, got %s", entryPrice)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}
	return &Position{
		ID:         id,
		Pair:       pair,
		Action:     action,
		EntryPrice: entryPrice,
		Amount:     amount,
		Timestamp:  ts,
	}, nil
}

// StopLossConfig is the process-wide stop-loss policy
type StopLossConfig struct {
	Enabled    bool
	Percentage decimal.Decimal // 2.5 means 2.5%
}

// DefaultStopLossConfig returns the 2.5% enabled policy
func DefaultStopLossConfig() StopLossConfig {
	return StopLossConfig{
		Enabled:    true,
		Percentage: decimal.NewFromFloat(2.5),
	}
}

// Validate checks the percentage is within (0, 100)
func (c StopLossConfig) Validate() error {
	if !c.Percentage.IsPositive() {
		return fmt.Errorf("stop loss percentage must be positive, got %s", c.Percentage)
	}
	if c.Percentage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("stop loss percentage must be below 100, got %s", c.Percentage)
	}
	return nil
}

// Trade is a write-once record of an opening or closing trade
type Trade struct {
	Timestamp time.Time
	Pair      string
	Action    Action
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Strategy  string
	Success   bool
	Kind      TradeKind
	Signature string // venue signature, empty for synthetic trades
}

// TradeRecord for display (Telegram bot)
type TradeRecord struct {
	Pair      string
	Action    string
	Kind      string
	Strategy  string
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Success   bool
	Timestamp time.Time
}

// PositionRecord for display (Telegram bot)
type PositionRecord struct {
	ID            string
	Pair          string
	Action        string
	EntryPrice    decimal.Decimal
	Amount        decimal.Decimal
	StopLoss      decimal.Decimal
	PotentialLoss decimal.Decimal
	OpenedAt      time.Time
}
