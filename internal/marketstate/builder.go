package marketstate

import (
	"fmt"
	"sort"

	"swing-advisor/internal/domain"
	"swing-advisor/internal/indicator"
)

// IndicatorEngine computes the indicator set for a bar history.
type IndicatorEngine interface {
	Compute(symbol string, bars []domain.PriceBar) (domain.IndicatorSet, error)
}

// Builder aggregates indicators, patterns and volume/trend context into one
// normalized MarketState. It is pure: same inputs, same state, no side
// effects.
type Builder struct {
	engine IndicatorEngine
}

func NewBuilder(engine IndicatorEngine) *Builder {
	if engine == nil {
		engine = indicator.NewEngine()
	}
	return &Builder{engine: engine}
}

// Build normalizes one symbol's context. PriceChange1D is a signed percentage
// and VolumeRatio a multiple of the 20-bar volume average, so downstream
// prompting and scoring see the same scale for every symbol. newsSentiment is
// optional and clamped to [-1,1] when present.
func (b *Builder) Build(symbol string, bars []domain.PriceBar, newsSentiment *float64) (domain.MarketState, error) {
	// Repositories return newest-first; everything below assumes
	// chronological order.
	bars = sortedByTime(bars)

	set, err := b.engine.Compute(symbol, bars)
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("compute indicators for %s: %w", symbol, err)
	}

	state := domain.MarketState{
		Symbol:     symbol,
		Indicators: set,
		Patterns:   indicator.DetectPatterns(bars),
	}

	last := bars[len(bars)-1]
	state.Price = last.Close

	if len(bars) >= 2 {
		prevClose := bars[len(bars)-2].Close
		if prevClose != 0 {
			state.PriceChange1D = (last.Close - prevClose) / prevClose * 100
		}
	}

	state.VolumeRatio = 1.0
	if set.VolumeMA20 != nil && *set.VolumeMA20 > 0 {
		state.VolumeRatio = last.Volume / *set.VolumeMA20
	}

	if newsSentiment != nil {
		s := clamp(*newsSentiment, -1, 1)
		state.NewsSentiment = &s
	}

	return state, nil
}

func sortedByTime(in []domain.PriceBar) []domain.PriceBar {
	out := make([]domain.PriceBar, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
