package scoring

import "swing-advisor/internal/domain"

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	stochLow      = 20.0
	stochHigh     = 80.0
)

// IndicatorConfluence measures how many computed directional indicators agree
// with the proposed action, scaled to [0,100]. Only indicators present on the
// state vote; a HOLD proposal has no direction to agree with and scores 0.
func IndicatorConfluence(state domain.MarketState, action domain.Action) float64 {
	var direction float64
	switch action {
	case domain.ActionBuy:
		direction = 1
	case domain.ActionSell:
		direction = -1
	default:
		return 0
	}

	var votes, agreeing float64
	vote := func(bullish bool) {
		votes++
		if (bullish && direction > 0) || (!bullish && direction < 0) {
			agreeing++
		}
	}

	ind := state.Indicators
	if ind.RSI14 != nil {
		switch {
		case *ind.RSI14 < rsiOversold:
			vote(true)
		case *ind.RSI14 > rsiOverbought:
			vote(false)
		}
	}
	if ind.MACD != nil && ind.MACD.Histogram != 0 {
		vote(ind.MACD.Histogram > 0)
	}
	if ind.SMA50 != nil && state.Price != *ind.SMA50 {
		vote(state.Price > *ind.SMA50)
	}
	if ind.SMA200 != nil && state.Price != *ind.SMA200 {
		vote(state.Price > *ind.SMA200)
	}
	if ind.Bollinger != nil {
		if state.Price > ind.Bollinger.Upper {
			vote(true)
		} else if state.Price < ind.Bollinger.Lower {
			vote(false)
		}
	}
	if ind.Stochastic != nil {
		switch {
		case ind.Stochastic.K < stochLow:
			vote(true)
		case ind.Stochastic.K > stochHigh:
			vote(false)
		}
	}

	if votes == 0 {
		return 0
	}
	return agreeing / votes * 100
}
