package llm

import (
	"strings"
	"testing"

	"swing-advisor/internal/domain"
)

func TestRenderPromptIncludesFragments(t *testing.T) {
	rsi := 28.4
	prompt := domain.PromptContext{
		State: domain.MarketState{
			Symbol:        "AAPL",
			Price:         187.25,
			PriceChange1D: -1.3,
			VolumeRatio:   1.8,
			Indicators:    domain.IndicatorSet{RSI14: &rsi},
		},
		QueryText: "swing trading strategy, RSI oversold",
		Fragments: domain.RetrievalResult{
			{Fragment: domain.KnowledgeFragment{
				ID:          "frag-001",
				Text:        "Oversold readings below 30 often precede mean reversion.",
				SourceTitle: "Technical Analysis of Financial Markets",
				Chapter:     "10",
				Page:        239,
			}},
			{Fragment: domain.KnowledgeFragment{
				ID:          "frag-002",
				Text:        "Confirm reversals with volume expansion.",
				SourceTitle: "Trading for a Living",
			}},
		},
	}

	out := renderPrompt(prompt)

	for _, want := range []string{
		"Symbol: AAPL",
		"RSI(14): 28.40",
		"[frag-001]",
		"(chapter 10, p.239)",
		"[frag-002]",
		"Trading for a Living",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("prompt missing %q:\n%s", want, out)
		}
	}
	// frag-002 has no chapter metadata and must not render a citation suffix.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "frag-002") && strings.Contains(line, "chapter") {
			t.Fatalf("unexpected chapter suffix on fragment without one: %q", line)
		}
	}
}

func TestRenderPromptEmptyFragments(t *testing.T) {
	out := renderPrompt(domain.PromptContext{
		State: domain.MarketState{Symbol: "MSFT", Price: 410.0, VolumeRatio: 1.0},
	})
	if !strings.Contains(out, "(none retrieved)") {
		t.Fatalf("expected empty-excerpt marker, got:\n%s", out)
	}
}
