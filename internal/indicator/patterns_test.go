package indicator

import (
	"math"
	"testing"
	"time"

	"swing-advisor/internal/domain"
)

func bar(ts int, open, high, low, close float64) domain.PriceBar {
	return domain.PriceBar{
		Timestamp: time.Unix(int64(ts)*86400, 0).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
	}
}

func findPattern(patterns []domain.Pattern, name string) *domain.Pattern {
	for i := range patterns {
		if patterns[i].Name == name {
			return &patterns[i]
		}
	}
	return nil
}

func TestDetectBullishEngulfing(t *testing.T) {
	prev := bar(0, 10, 10.1, 8.7, 9)     // bearish
	curr := bar(1, 8.8, 10.6, 8.7, 10.4) // bullish, body contains prior body

	strength, ok := detectBullishEngulfing(prev, curr)
	if !ok {
		t.Fatal("expected bullish engulfing")
	}
	// prev body 1.0, curr body 1.6 -> 1.6/2.0
	if math.Abs(strength-0.8) > 1e-9 {
		t.Fatalf("expected strength 0.8, got %v", strength)
	}

	// Current body failing to contain the prior body is not engulfing.
	if _, ok := detectBullishEngulfing(prev, bar(1, 9.2, 10.6, 9.1, 10.4)); ok {
		t.Fatal("expected no engulfing when prior open is not covered")
	}
}

func TestDetectBearishEngulfing(t *testing.T) {
	prev := bar(0, 9, 10.2, 8.9, 10)    // bullish
	curr := bar(1, 10.2, 10.3, 8.4, 8.5) // bearish, engulfs

	strength, ok := detectBearishEngulfing(prev, curr)
	if !ok {
		t.Fatal("expected bearish engulfing")
	}
	if strength <= 0 || strength > 1 {
		t.Fatalf("strength out of range: %v", strength)
	}
}

func TestDetectHammerAndShootingStar(t *testing.T) {
	hammer := bar(0, 9.9, 10.05, 9, 10)
	strength, ok := detectHammer(hammer)
	if !ok {
		t.Fatal("expected hammer")
	}
	if strength < 0.6 || strength > 1 {
		t.Fatalf("unexpected hammer strength: %v", strength)
	}

	star := bar(0, 10, 11, 9.95, 9.96)
	if _, ok := detectHammer(star); ok {
		t.Fatal("upper-wick candle is not a hammer")
	}
	if _, ok := detectShootingStar(star); !ok {
		t.Fatal("expected shooting star")
	}

	flat := bar(0, 10, 10, 10, 10)
	if _, ok := detectHammer(flat); ok {
		t.Fatal("zero-range candle must not match")
	}
}

func TestDetectTrendPatterns(t *testing.T) {
	window := []domain.PriceBar{
		bar(0, 10, 11, 9.0, 10.5),
		bar(1, 10.5, 11.5, 9.5, 11),
		bar(2, 11, 12, 10.0, 11.5),
	}
	strength, ok := detectHigherLows(window)
	if !ok {
		t.Fatal("expected higher lows")
	}
	if strength <= 0 {
		t.Fatalf("expected positive strength, got %v", strength)
	}
	if _, ok := detectLowerHighs(window); ok {
		t.Fatal("rising highs must not match lower highs")
	}
}

func TestDetectPatternsClampsAndStamps(t *testing.T) {
	bars := []domain.PriceBar{
		bar(0, 10, 11, 1, 10.5),
		bar(1, 10.5, 11.5, 5, 11),
		bar(2, 11, 12, 9, 11.5),
	}
	patterns := DetectPatterns(bars)
	hl := findPattern(patterns, PatternHigherLows)
	if hl == nil {
		t.Fatal("expected higher lows pattern")
	}
	if hl.Strength != 1 {
		t.Fatalf("expected strength clamped to 1, got %v", hl.Strength)
	}
	if !hl.DetectedAt.Equal(bars[2].Timestamp) {
		t.Fatalf("expected detection stamped at latest bar, got %v", hl.DetectedAt)
	}
}

func TestDetectPatternsEmptyInput(t *testing.T) {
	if got := DetectPatterns(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
