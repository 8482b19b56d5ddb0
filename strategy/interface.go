package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY INTERFACE - Plug-in pattern for strategies
// ═══════════════════════════════════════════════════════════════════════════════
//
// All strategies implement this interface:
//   Decide(ctx) (types.Action, error)
//
// The engine calls Decide once per live tick; an error stops the loop.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	ErrUnknownStrategy  = errors.New("unknown strategy type")
	ErrUnknownIndicator = errors.New("unknown indicator type")
	ErrInvalidParams    = errors.New("invalid strategy parameters")
)

// Strategy is the interface all trading strategies must implement
type Strategy interface {
	// Name returns the strategy identifier
	Name() string

	// Decide returns the direction of the next trade
	Decide(ctx context.Context) (types.Action, error)

	// Config returns strategy configuration
	Config() map[string]interface{}
}

// Type names a strategy family
type Type string

const (
	MeanReversion    Type = "Mean Reversion"
	BreakoutMomentum Type = "Breakout Momentum"
	RangeScalping    Type = "Range Scalping"
	MultiIndicator   Type = "Multi-Indicator"
)

// Types lists every supported strategy type
var Types = []Type{MeanReversion, BreakoutMomentum, RangeScalping, MultiIndicator}

// ParseType matches a strategy name case-insensitively
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// IndicatorType names a technical indicator
type IndicatorType string

const (
	SMA            IndicatorType = "SMA"
	RSI            IndicatorType = "RSI"
	MACD           IndicatorType = "MACD"
	BollingerBands IndicatorType = "Bollinger Bands"
)

// Indicator is an indicator with its numeric parameters
type Indicator struct {
	Type       IndicatorType      `json:"type"`
	Parameters map[string]float64 `json:"parameters"`
}

// Validate checks the indicator type and parameters
func (i Indicator) Validate() error {
	switch i.Type {
	case SMA, RSI, BollingerBands:
		if i.Parameters["period"] <= 0 {
			return fmt.Errorf("%w: %s period must be positive", ErrInvalidParams, i.Type)
		}
	case MACD:
		fast, slow := i.Parameters["fast"], i.Parameters["slow"]
		if fast <= 0 || slow <= 0 || fast >= slow {
			return fmt.Errorf("%w: MACD needs 0 < fast < slow, got %v/%v", ErrInvalidParams, fast, slow)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIndicator, i.Type)
	}
	return nil
}

// Params configures a strategy run
type Params struct {
	Type       Type            `json:"type"`
	Indicators []Indicator     `json:"indicators"`
	Amount     decimal.Decimal `json:"amount"`
	Pair       string          `json:"pair"`
	Action     types.Action    `json:"action,omitempty"` // empty: strategy default
}

// DefaultParams returns the out-of-the-box configuration
func DefaultParams() Params {
	return Params{
		Type: MultiIndicator,
		Indicators: []Indicator{
			{Type: SMA, Parameters: map[string]float64{"period": 14}},
			{Type: RSI, Parameters: map[string]float64{"period": 30}},
			{Type: MACD, Parameters: map[string]float64{"fast": 12, "slow": 26}},
		},
		Amount: decimal.NewFromFloat(0.5),
		Pair:   "SOL/USDC",
	}
}

// Validate checks params before a run starts
func (p Params) Validate() error {
	if _, err := ParseType(string(p.Type)); err != nil {
		return err
	}
	if p.Pair == "" {
		return fmt.Errorf("%w: pair is required", ErrInvalidParams)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidParams, p.Amount)
	}
	if p.Action != "" && !p.Action.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidParams, types.ErrInvalidAction)
	}
	for _, ind := range p.Indicators {
		if err := ind.Validate(); err != nil {
			return err
		}
	}
	return nil
}
