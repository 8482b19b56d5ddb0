package strategy

import (
	"context"

	"github.com/web3guy0/solbotx/types"
)

// defaultDirections is the side each family trades when no action is forced
var defaultDirections = map[Type]types.Action{
	MeanReversion:    types.Sell,
	BreakoutMomentum: types.Buy,
	RangeScalping:    types.Sell,
	MultiIndicator:   types.Buy,
}

// Rule is a fixed-direction strategy configured by Params
type Rule struct {
	params    Params
	direction types.Action
}

// New validates params and builds the matching strategy
func New(params Params) (*Rule, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	t, _ := ParseType(string(params.Type))
	params.Type = t

	direction := defaultDirections[t]
	if params.Action != "" {
		direction = params.Action
	}

	return &Rule{params: params, direction: direction}, nil
}

func (r *Rule) Name() string { return string(r.params.Type) }

// Decide returns the configured direction
func (r *Rule) Decide(ctx context.Context) (types.Action, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.direction, nil
}

func (r *Rule) Config() map[string]interface{} {
	indicators := make([]string, 0, len(r.params.Indicators))
	for _, ind := range r.params.Indicators {
		indicators = append(indicators, string(ind.Type))
	}
	return map[string]interface{}{
		"type":       string(r.params.Type),
		"pair":       r.params.Pair,
		"amount":     r.params.Amount.String(),
		"direction":  string(r.direction),
		"indicators": indicators,
	}
}
