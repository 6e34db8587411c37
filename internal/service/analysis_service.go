// Package service runs the per-symbol analysis pipeline and the watchlist
// fan-out around it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"swing-advisor/internal/config"
	"swing-advisor/internal/domain"
	"swing-advisor/internal/draft"
	"swing-advisor/internal/indicator"
	"swing-advisor/internal/marketstate"
	"swing-advisor/internal/scoring"

	"go.opentelemetry.io/otel/trace"
)

const (
	reasonInsufficientHistory = "insufficient price history for analysis"
	reasonNoKnowledge         = "no supporting knowledge retrieved; directional call withheld"
	reasonUnusableDraft       = "draft response was unusable; directional call withheld"
	reasonUpstreamFailure     = "analysis degraded by upstream failure"
)

type PriceHistoryProvider interface {
	GetBars(ctx context.Context, symbol string, limit int) ([]domain.PriceBar, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Drafter interface {
	Draft(ctx context.Context, prompt domain.PromptContext) (string, error)
}

type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, queryText string, queryVector []float64, filters map[string]string, k int) (domain.RetrievalResult, error)
}

// AnalysisService turns price history into one scored signal per symbol:
// indicators, retrieval, draft generation, validation, scoring. Every
// degradation path yields a HOLD signal so a cycle always produces a full
// ranking.
type AnalysisService struct {
	tracer    trace.Tracer
	prices    PriceHistoryProvider
	builder   *marketstate.Builder
	retriever KnowledgeRetriever
	embedder  Embedder
	drafter   Drafter
	scorer    *scoring.Scorer

	lookbackDays int
	retrievalK   int
}

func NewAnalysisService(
	tracer trace.Tracer,
	prices PriceHistoryProvider,
	builder *marketstate.Builder,
	retriever KnowledgeRetriever,
	embedder Embedder,
	drafter Drafter,
	weights config.ScoreWeights,
	lookbackDays, retrievalK int,
) *AnalysisService {
	return &AnalysisService{
		tracer:       tracer,
		prices:       prices,
		builder:      builder,
		retriever:    retriever,
		embedder:     embedder,
		drafter:      drafter,
		scorer:       scoring.NewScorer(weights),
		lookbackDays: lookbackDays,
		retrievalK:   retrievalK,
	}
}

// AnalyzeSymbol runs the full pipeline for one symbol. When an upstream
// collaborator fails, the returned signal is a HOLD carrying the degradation
// reason and the error describes what failed; both are non-nil together.
func (s *AnalysisService) AnalyzeSymbol(ctx context.Context, symbol string) (domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze-symbol")
	defer span.End()

	bars, err := s.prices.GetBars(ctx, symbol, s.lookbackDays)
	if err != nil {
		return holdSignal(symbol, domain.MarketState{Symbol: symbol}, 0, reasonUpstreamFailure),
			fmt.Errorf("load price history for %s: %w", symbol, err)
	}

	state, err := s.builder.Build(symbol, bars, nil)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			return holdSignal(symbol, domain.MarketState{Symbol: symbol}, 0, reasonInsufficientHistory), nil
		}
		return holdSignal(symbol, domain.MarketState{Symbol: symbol}, 0, reasonUpstreamFailure),
			fmt.Errorf("build market state for %s: %w", symbol, err)
	}

	queryText := marketstate.QueryText(state)

	// An embedding failure narrows retrieval to the lexical leg instead of
	// aborting the symbol.
	vector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		log.Printf("embedding failed for %s, falling back to lexical retrieval: %v", symbol, err)
		vector = nil
	}

	fragments, err := s.retriever.Retrieve(ctx, queryText, vector, nil, s.retrievalK)
	if err != nil {
		return holdSignal(symbol, state, 0, reasonUpstreamFailure),
			fmt.Errorf("retrieve knowledge for %s: %w", symbol, err)
	}
	if len(fragments) == 0 {
		return holdSignal(symbol, state, 0, reasonNoKnowledge), nil
	}

	raw, err := s.drafter.Draft(ctx, domain.PromptContext{
		State:     state,
		QueryText: queryText,
		Fragments: fragments,
	})
	if err != nil {
		return holdSignal(symbol, state, 0, reasonUpstreamFailure),
			fmt.Errorf("draft signal for %s: %w", symbol, err)
	}

	d, err := draft.Parse(raw)
	if err != nil {
		return holdSignal(symbol, state, 0, reasonUnusableDraft),
			fmt.Errorf("parse draft for %s: %w", symbol, err)
	}

	citations := resolveCitations(d.CitationIDs, fragments)
	confidence := s.scorer.Score(scoring.Input{
		LLMConfidence:     d.LLMConfidence,
		Citations:         citations,
		IndicatorStrength: scoring.IndicatorConfluence(state, d.Action),
		Patterns:          state.Patterns,
	})

	signal := domain.Signal{
		Symbol:      symbol,
		Action:      d.Action,
		Confidence:  confidence,
		Reasoning:   d.Reasoning,
		Citations:   citations,
		MarketState: state,
	}
	if d.Action != domain.ActionHold {
		signal.EntryPrice = d.EntryPrice
		signal.TargetPrice = d.TargetPrice
		signal.StopLoss = d.StopLoss
		signal.HoldingPeriodDays = d.HoldingPeriodDays
		signal.RiskRewardRatio = domain.RiskReward(d.EntryPrice, d.TargetPrice, d.StopLoss)
	}
	return signal, nil
}

// resolveCitations keeps only draft citation IDs that name a retrieved
// fragment; anything the model invented is dropped, which can demote the
// signal to an uncited HOLD at ranking time.
func resolveCitations(ids []string, fragments domain.RetrievalResult) []domain.KnowledgeFragment {
	byID := make(map[string]domain.KnowledgeFragment, len(fragments))
	for _, f := range fragments {
		byID[f.Fragment.ID] = f.Fragment
	}
	var cited []domain.KnowledgeFragment
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			cited = append(cited, f)
		}
	}
	return cited
}

func holdSignal(symbol string, state domain.MarketState, confidence float64, reason string) domain.Signal {
	return domain.Signal{
		Symbol:      symbol,
		Action:      domain.ActionHold,
		Confidence:  confidence,
		Reasoning:   reason,
		MarketState: state,
	}
}
