package scoring

import (
	"swing-advisor/internal/config"
	"swing-advisor/internal/domain"
)

const (
	citationCountWeight  = 15.0
	sourceSpreadWeight   = 20.0
	maxComponentScore    = 100.0
	patternStrengthScale = 100.0
)

// Input carries the four confidence components for one signal. LLMConfidence
// and IndicatorStrength are expected in [0,100]; out-of-domain values are
// tolerated because the final score is clamped regardless.
type Input struct {
	LLMConfidence     float64
	Citations         []domain.KnowledgeFragment
	IndicatorStrength float64
	Patterns          []domain.Pattern
}

// Scorer combines the generative model's self-reported confidence with
// retrieval agreement, indicator confluence and pattern strength. Weights
// come from configuration validated at load time.
type Scorer struct {
	weights config.ScoreWeights
}

func NewScorer(weights config.ScoreWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns a confidence in [0,100]. Clamping after the weighted sum is a
// hard guarantee, not best effort.
func (s *Scorer) Score(in Input) float64 {
	score := s.weights.LLM*in.LLMConfidence +
		s.weights.SourceAgreement*sourceAgreement(in.Citations) +
		s.weights.IndicatorStrength*in.IndicatorStrength +
		s.weights.PatternConfidence*patternConfidence(in.Patterns)
	return clamp(score, 0, maxComponentScore)
}

// sourceAgreement rewards both citation volume and spread across distinct
// sources: min(100, 15·total + 20·(distinct/total)), 0 without citations.
func sourceAgreement(citations []domain.KnowledgeFragment) float64 {
	total := len(citations)
	if total == 0 {
		return 0
	}

	distinct := make(map[string]struct{}, total)
	for _, c := range citations {
		distinct[c.SourceTitle] = struct{}{}
	}

	score := citationCountWeight*float64(total) +
		sourceSpreadWeight*(float64(len(distinct))/float64(total))
	if score > maxComponentScore {
		return maxComponentScore
	}
	return score
}

// patternConfidence is the strongest detected pattern scaled to [0,100],
// 0 when nothing was detected.
func patternConfidence(patterns []domain.Pattern) float64 {
	var best float64
	for _, p := range patterns {
		if p.Strength > best {
			best = p.Strength
		}
	}
	return clamp(best*patternStrengthScale, 0, maxComponentScore)
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
