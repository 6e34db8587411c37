package marketstate

import (
	"fmt"
	"strings"

	"swing-advisor/internal/domain"
)

const (
	rsiOversold   = 30
	rsiOverbought = 70
	volumeSurge   = 1.5
)

// QueryText renders a market state as retrieval query terms. The phrasing is
// the same for every symbol so fused rankings stay comparable across the
// watchlist.
func QueryText(state domain.MarketState) string {
	terms := []string{"swing trading strategy"}

	if rsi := state.Indicators.RSI14; rsi != nil {
		switch {
		case *rsi < rsiOversold:
			terms = append(terms, "RSI oversold reversal entry")
		case *rsi > rsiOverbought:
			terms = append(terms, "RSI overbought exit")
		default:
			terms = append(terms, "RSI neutral momentum")
		}
	}

	if macd := state.Indicators.MACD; macd != nil {
		if macd.Histogram > 0 {
			terms = append(terms, "MACD bullish crossover")
		} else if macd.Histogram < 0 {
			terms = append(terms, "MACD bearish crossover")
		}
	}

	if sma := state.Indicators.SMA50; sma != nil && *sma != 0 {
		if state.Price > *sma {
			terms = append(terms, "price above 50-day moving average uptrend")
		} else {
			terms = append(terms, "price below 50-day moving average downtrend")
		}
	}

	if bb := state.Indicators.Bollinger; bb != nil {
		if state.Price > bb.Upper {
			terms = append(terms, "Bollinger band breakout")
		} else if state.Price < bb.Lower {
			terms = append(terms, "Bollinger band breakdown")
		}
	}

	if state.VolumeRatio >= volumeSurge {
		terms = append(terms, "volume surge confirmation")
	}

	for _, p := range state.Patterns {
		terms = append(terms, strings.ReplaceAll(p.Name, "_", " ")+" candlestick pattern")
	}

	if state.NewsSentiment != nil {
		if *state.NewsSentiment > 0 {
			terms = append(terms, "positive news catalyst")
		} else if *state.NewsSentiment < 0 {
			terms = append(terms, "negative news risk management")
		}
	}

	return strings.Join(terms, ", ")
}

// Describe renders the state as prompt context lines for the drafter.
func Describe(state domain.MarketState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", state.Symbol)
	fmt.Fprintf(&b, "Price: %.4f (%+.2f%% 1d)\n", state.Price, state.PriceChange1D)
	fmt.Fprintf(&b, "Volume ratio vs 20-bar average: %.2fx\n", state.VolumeRatio)

	ind := state.Indicators
	if ind.RSI14 != nil {
		fmt.Fprintf(&b, "RSI(14): %.2f\n", *ind.RSI14)
	}
	if ind.MACD != nil {
		fmt.Fprintf(&b, "MACD: %.4f signal %.4f histogram %.4f\n", ind.MACD.Value, ind.MACD.Signal, ind.MACD.Histogram)
	}
	if ind.SMA20 != nil {
		fmt.Fprintf(&b, "SMA20: %.4f\n", *ind.SMA20)
	}
	if ind.SMA50 != nil {
		fmt.Fprintf(&b, "SMA50: %.4f\n", *ind.SMA50)
	}
	if ind.SMA200 != nil {
		fmt.Fprintf(&b, "SMA200: %.4f\n", *ind.SMA200)
	}
	if ind.Bollinger != nil {
		fmt.Fprintf(&b, "Bollinger: upper %.4f mid %.4f lower %.4f\n", ind.Bollinger.Upper, ind.Bollinger.Mid, ind.Bollinger.Lower)
	}
	if ind.ATR14 != nil {
		fmt.Fprintf(&b, "ATR(14): %.4f\n", *ind.ATR14)
	}
	if ind.Stochastic != nil {
		fmt.Fprintf(&b, "Stochastic: %%K %.2f %%D %.2f\n", ind.Stochastic.K, ind.Stochastic.D)
	}

	for _, p := range state.Patterns {
		fmt.Fprintf(&b, "Pattern: %s (strength %.2f)\n", p.Name, p.Strength)
	}
	if state.NewsSentiment != nil {
		fmt.Fprintf(&b, "News sentiment: %+.2f\n", *state.NewsSentiment)
	}
	return b.String()
}
