package indicator

import (
	"math"

	"swing-advisor/internal/domain"
)

const (
	PatternBullishEngulfing = "bullish_engulfing"
	PatternBearishEngulfing = "bearish_engulfing"
	PatternHammer           = "hammer"
	PatternShootingStar     = "shooting_star"
	PatternHigherLows       = "higher_lows"
	PatternLowerHighs       = "lower_highs"
)

const (
	wickDominanceRatio = 0.6
	smallBodyRatio     = 0.3
	trendStrengthScale = 10
)

// DetectPatterns inspects the most recent bars (up to five) with fixed
// geometric rules. Each detection carries a strength in [0,1] so scoring can
// weight it instead of treating detection as boolean.
func DetectPatterns(bars []domain.PriceBar) []domain.Pattern {
	bars = normalizeBars(bars)
	if len(bars) == 0 {
		return nil
	}

	latest := bars[len(bars)-1]
	patterns := make([]domain.Pattern, 0, 3)

	add := func(name string, strength float64, ok bool) {
		if !ok {
			return
		}
		patterns = append(patterns, domain.Pattern{
			Name:       name,
			DetectedAt: latest.Timestamp,
			Strength:   clamp01(strength),
		})
	}

	if len(bars) >= 2 {
		prev := bars[len(bars)-2]
		strength, ok := detectBullishEngulfing(prev, latest)
		add(PatternBullishEngulfing, strength, ok)
		strength, ok = detectBearishEngulfing(prev, latest)
		add(PatternBearishEngulfing, strength, ok)
	}

	strength, ok := detectHammer(latest)
	add(PatternHammer, strength, ok)
	strength, ok = detectShootingStar(latest)
	add(PatternShootingStar, strength, ok)

	if len(bars) >= 3 {
		window := bars[len(bars)-3:]
		strength, ok = detectHigherLows(window)
		add(PatternHigherLows, strength, ok)
		strength, ok = detectLowerHighs(window)
		add(PatternLowerHighs, strength, ok)
	}

	return patterns
}

// detectBullishEngulfing requires a bearish prior candle, a bullish current
// candle, and the current body to fully contain the prior body.
func detectBullishEngulfing(prev, curr domain.PriceBar) (float64, bool) {
	if prev.Close >= prev.Open || curr.Close <= curr.Open {
		return 0, false
	}
	if curr.Open > prev.Close || curr.Close < prev.Open {
		return 0, false
	}

	prevBody := prev.Open - prev.Close
	currBody := curr.Close - curr.Open
	if currBody <= 0 {
		return 0, false
	}
	if prevBody <= 0 {
		return 1, true
	}
	// Engulfing at twice the prior body counts as full strength.
	return currBody / (2 * prevBody), true
}

func detectBearishEngulfing(prev, curr domain.PriceBar) (float64, bool) {
	if prev.Close <= prev.Open || curr.Close >= curr.Open {
		return 0, false
	}
	if curr.Open < prev.Close || curr.Close > prev.Open {
		return 0, false
	}

	prevBody := prev.Close - prev.Open
	currBody := curr.Open - curr.Close
	if currBody <= 0 {
		return 0, false
	}
	if prevBody <= 0 {
		return 1, true
	}
	return currBody / (2 * prevBody), true
}

// detectHammer requires a dominant lower wick and a small body near the top
// of the range.
func detectHammer(bar domain.PriceBar) (float64, bool) {
	total := bar.High - bar.Low
	if total <= 0 {
		return 0, false
	}
	body := math.Abs(bar.Close - bar.Open)
	lowerWick := math.Min(bar.Open, bar.Close) - bar.Low

	if lowerWick < wickDominanceRatio*total || body > smallBodyRatio*total {
		return 0, false
	}
	return lowerWick / total, true
}

func detectShootingStar(bar domain.PriceBar) (float64, bool) {
	total := bar.High - bar.Low
	if total <= 0 {
		return 0, false
	}
	body := math.Abs(bar.Close - bar.Open)
	upperWick := bar.High - math.Max(bar.Open, bar.Close)

	if upperWick < wickDominanceRatio*total || body > smallBodyRatio*total {
		return 0, false
	}
	return upperWick / total, true
}

func detectHigherLows(window []domain.PriceBar) (float64, bool) {
	c2, c1, c0 := window[0], window[1], window[2]
	if c0.Low <= c1.Low || c1.Low <= c2.Low || c2.Low <= 0 {
		return 0, false
	}
	return (c0.Low - c2.Low) / c2.Low * trendStrengthScale, true
}

func detectLowerHighs(window []domain.PriceBar) (float64, bool) {
	c2, c1, c0 := window[0], window[1], window[2]
	if c0.High >= c1.High || c1.High >= c2.High || c2.High <= 0 {
		return 0, false
	}
	return (c2.High - c0.High) / c2.High * trendStrengthScale, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
