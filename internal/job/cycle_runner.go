// Package job schedules recurring analysis cycles.
package job

import (
	"context"
	"log"
	"time"

	"swing-advisor/internal/service"

	"go.opentelemetry.io/otel/trace"
)

type CycleAnalyzer interface {
	RunCycle(ctx context.Context, symbols []string) service.CycleResult
}

type CycleSink interface {
	Publish(ctx context.Context, result service.CycleResult) error
}

// CycleRunner runs watchlist analysis on a fixed interval and hands each
// result to the sink. A zero interval means run once and return.
type CycleRunner struct {
	tracer    trace.Tracer
	analyzer  CycleAnalyzer
	sink      CycleSink
	watchlist []string
	interval  time.Duration
}

func NewCycleRunner(tracer trace.Tracer, analyzer CycleAnalyzer, sink CycleSink, watchlist []string, interval time.Duration) *CycleRunner {
	return &CycleRunner{
		tracer:    tracer,
		analyzer:  analyzer,
		sink:      sink,
		watchlist: watchlist,
		interval:  interval,
	}
}

// Start runs the first cycle immediately, then ticks until ctx is cancelled.
func (r *CycleRunner) Start(ctx context.Context) {
	r.runOnce(ctx)
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("cycle runner stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *CycleRunner) runOnce(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "job.analysis-cycle")
	defer span.End()

	result := r.analyzer.RunCycle(ctx, r.watchlist)
	if result.Degraded {
		log.Printf("analysis cycle degraded: all %d symbols failed", len(r.watchlist))
	}
	for _, se := range result.Errors {
		log.Printf("cycle error for %s: %v", se.Symbol, se.Err)
	}

	if r.sink == nil {
		return
	}
	if err := r.sink.Publish(ctx, result); err != nil {
		log.Printf("publish cycle result: %v", err)
	}
}
