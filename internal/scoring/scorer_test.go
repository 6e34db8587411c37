package scoring

import (
	"math"
	"testing"

	"swing-advisor/internal/config"
	"swing-advisor/internal/domain"
)

func defaultWeights() config.ScoreWeights {
	return config.ScoreWeights{
		LLM:               0.30,
		SourceAgreement:   0.35,
		IndicatorStrength: 0.25,
		PatternConfidence: 0.10,
	}
}

func citationsFrom(sources ...string) []domain.KnowledgeFragment {
	out := make([]domain.KnowledgeFragment, 0, len(sources))
	for i, s := range sources {
		out = append(out, domain.KnowledgeFragment{ID: string(rune('a' + i)), SourceTitle: s})
	}
	return out
}

func TestScoreWeightedSum(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	// 3 citations from 2 distinct sources:
	// sourceAgreement = 15*3 + 20*(2/3) = 58.333...
	in := Input{
		LLMConfidence:     80,
		Citations:         citationsFrom("Book A", "Book A", "Book B"),
		IndicatorStrength: 60,
		Patterns:          []domain.Pattern{{Strength: 0.5}, {Strength: 0.9}},
	}
	want := 0.30*80 + 0.35*(45+20.0*2/3) + 0.25*60 + 0.10*90
	if got := scorer.Score(in); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScoreZeroCitationsZeroAgreement(t *testing.T) {
	scorer := NewScorer(defaultWeights())
	got := scorer.Score(Input{LLMConfidence: 100})
	if math.Abs(got-30) > 1e-9 {
		t.Fatalf("expected 30 (llm component only), got %v", got)
	}
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	scorer := NewScorer(defaultWeights())

	cases := []Input{
		{},
		{LLMConfidence: 0},
		{LLMConfidence: 100, Citations: citationsFrom("A", "B", "C", "D", "E", "F", "G", "H"), IndicatorStrength: 100, Patterns: []domain.Pattern{{Strength: 1}}},
		{LLMConfidence: -50, IndicatorStrength: -10},
		{LLMConfidence: 500, IndicatorStrength: 500, Patterns: []domain.Pattern{{Strength: 7}}},
	}
	for i, in := range cases {
		got := scorer.Score(in)
		if got < 0 || got > 100 {
			t.Fatalf("case %d: score %v out of [0,100]", i, got)
		}
	}
}

func TestSourceAgreementSaturates(t *testing.T) {
	// 7 citations alone exceed 100 before the spread term.
	if got := sourceAgreement(citationsFrom("A", "B", "C", "D", "E", "F", "G")); got != 100 {
		t.Fatalf("expected saturation at 100, got %v", got)
	}
	if got := sourceAgreement(nil); got != 0 {
		t.Fatalf("expected 0 without citations, got %v", got)
	}
}

func TestPatternConfidenceTakesMax(t *testing.T) {
	got := patternConfidence([]domain.Pattern{{Strength: 0.2}, {Strength: 0.7}, {Strength: 0.4}})
	if math.Abs(got-70) > 1e-9 {
		t.Fatalf("expected 70, got %v", got)
	}
	if got := patternConfidence(nil); got != 0 {
		t.Fatalf("expected 0 without patterns, got %v", got)
	}
}

func TestIndicatorConfluence(t *testing.T) {
	rsi := 25.0
	sma50 := 90.0
	state := domain.MarketState{
		Price: 100,
		Indicators: domain.IndicatorSet{
			RSI14: &rsi,
			MACD:  &domain.MACD{Histogram: 1.5},
			SMA50: &sma50,
		},
	}

	// RSI oversold, MACD positive, price above SMA50: all three bullish.
	if got := IndicatorConfluence(state, domain.ActionBuy); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := IndicatorConfluence(state, domain.ActionSell); got != 0 {
		t.Fatalf("expected 0 for opposing action, got %v", got)
	}
	if got := IndicatorConfluence(state, domain.ActionHold); got != 0 {
		t.Fatalf("expected 0 for hold, got %v", got)
	}
	if got := IndicatorConfluence(domain.MarketState{}, domain.ActionBuy); got != 0 {
		t.Fatalf("expected 0 without any voting indicator, got %v", got)
	}
}
