package service

import (
	"context"
	"log"
	"sync"
	"time"

	"swing-advisor/internal/domain"
	"swing-advisor/internal/scoring"

	"go.opentelemetry.io/otel/trace"
)

// SymbolError records one symbol whose pipeline degraded during a cycle.
type SymbolError struct {
	Symbol string
	Err    error
}

// CycleResult is one watchlist pass: every input symbol appears in Ranked
// exactly once, degraded symbols as HOLDs. Degraded is set when no symbol
// completed cleanly.
type CycleResult struct {
	Ranked   []domain.Signal
	Errors   []SymbolError
	Degraded bool
}

// WatchlistAnalyzer fans AnalyzeSymbol out over the watchlist with bounded
// concurrency and a per-symbol deadline, then ranks the combined results.
type WatchlistAnalyzer struct {
	tracer        trace.Tracer
	analysis      SymbolAnalyzer
	maxConcurrent int
	symbolTimeout time.Duration
}

type SymbolAnalyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol string) (domain.Signal, error)
}

func NewWatchlistAnalyzer(tracer trace.Tracer, analysis SymbolAnalyzer, maxConcurrent int, symbolTimeout time.Duration) *WatchlistAnalyzer {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &WatchlistAnalyzer{
		tracer:        tracer,
		analysis:      analysis,
		maxConcurrent: maxConcurrent,
		symbolTimeout: symbolTimeout,
	}
}

func (w *WatchlistAnalyzer) RunCycle(ctx context.Context, symbols []string) CycleResult {
	ctx, span := w.tracer.Start(ctx, "analysis.run-cycle")
	defer span.End()

	if len(symbols) == 0 {
		return CycleResult{}
	}

	type outcome struct {
		signal domain.Signal
		err    error
	}

	results := make([]outcome, len(symbols))
	sem := make(chan struct{}, w.maxConcurrent)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(idx int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			symCtx := ctx
			if w.symbolTimeout > 0 {
				var cancel context.CancelFunc
				symCtx, cancel = context.WithTimeout(ctx, w.symbolTimeout)
				defer cancel()
			}

			signal, err := w.analysis.AnalyzeSymbol(symCtx, symbol)
			if err != nil {
				log.Printf("analysis degraded for %s: %v", symbol, err)
			}
			results[idx] = outcome{signal: signal, err: err}
		}(i, symbol)
	}
	wg.Wait()

	var result CycleResult
	signals := make([]domain.Signal, 0, len(symbols))
	failed := 0
	for _, r := range results {
		signals = append(signals, r.signal)
		if r.err != nil {
			failed++
			result.Errors = append(result.Errors, SymbolError{Symbol: r.signal.Symbol, Err: r.err})
		}
	}

	result.Ranked = scoring.Rank(signals)
	result.Degraded = failed == len(symbols)
	return result
}
