package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/feeds"
)

// Reading is one indicator's current value over observed prices.
// Ready is false until the series holds enough prices.
type Reading struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Ready bool            `json:"ready"`
}

var bollingerWidth = decimal.NewFromInt(2)

// Evaluate computes each indicator over series. Bollinger Bands yield three
// readings (upper, middle, lower).
func Evaluate(indicators []Indicator, series *feeds.PriceSeries) []Reading {
	if series == nil {
		return nil
	}

	var out []Reading
	for _, ind := range indicators {
		switch ind.Type {
		case SMA:
			p := int(ind.Parameters["period"])
			v, ok := series.SMA(p)
			out = append(out, Reading{Name: fmt.Sprintf("SMA(%d)", p), Value: v, Ready: ok})

		case RSI:
			p := int(ind.Parameters["period"])
			v, ok := series.RSI(p)
			out = append(out, Reading{Name: fmt.Sprintf("RSI(%d)", p), Value: v, Ready: ok})

		case MACD:
			fast, slow := int(ind.Parameters["fast"]), int(ind.Parameters["slow"])
			v, ok := series.MACD(fast, slow)
			out = append(out, Reading{Name: fmt.Sprintf("MACD(%d,%d)", fast, slow), Value: v, Ready: ok})

		case BollingerBands:
			p := int(ind.Parameters["period"])
			upper, middle, lower, ok := series.Bollinger(p, bollingerWidth)
			out = append(out,
				Reading{Name: fmt.Sprintf("BB(%d) upper", p), Value: upper, Ready: ok},
				Reading{Name: fmt.Sprintf("BB(%d) middle", p), Value: middle, Ready: ok},
				Reading{Name: fmt.Sprintf("BB(%d) lower", p), Value: lower, Ready: ok},
			)
		}
	}
	return out
}
