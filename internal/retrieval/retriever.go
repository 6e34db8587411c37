package retrieval

import (
	"context"
	"fmt"
	"sort"

	"swing-advisor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Each input list is over-fetched relative to the requested k so fusion has
// enough candidates to promote fragments ranked well by only one list.
const overFetchFactor = 2

// ScoredFragment is one hit from a single underlying index, before fusion.
type ScoredFragment struct {
	Fragment domain.KnowledgeFragment
	Score    float64
}

// VectorIndex is the external nearest-neighbor search over the embedding
// index.
type VectorIndex interface {
	KNNSearch(ctx context.Context, vector []float64, k int, filters map[string]string) ([]ScoredFragment, error)
}

// LexicalIndex is the external keyword-relevance search.
type LexicalIndex interface {
	Search(ctx context.Context, text string, k int, filters map[string]string) ([]ScoredFragment, error)
}

// FusionConfig carries the validated fusion constants. RankConstant is the κ
// of the reciprocal-rank formula; the list weights both default to 1.0, which
// makes fusion symmetric in its two inputs.
type FusionConfig struct {
	RankConstant  float64
	VectorWeight  float64
	LexicalWeight float64
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{RankConstant: 60, VectorWeight: 1, LexicalWeight: 1}
}

// Retriever fuses a vector ranking and a lexical ranking with Reciprocal Rank
// Fusion. It holds no state across calls; callers own caching.
type Retriever struct {
	tracer  trace.Tracer
	vector  VectorIndex
	lexical LexicalIndex
	fusion  FusionConfig
}

func NewRetriever(tracer trace.Tracer, vector VectorIndex, lexical LexicalIndex, fusion FusionConfig) *Retriever {
	return &Retriever{
		tracer:  tracer,
		vector:  vector,
		lexical: lexical,
		fusion:  fusion,
	}
}

// Retrieve runs both searches and fuses their rankings. Filters are applied
// by the underlying indexes, before fusion. An empty candidate set after
// filtering is a valid empty result, not an error. A nil queryVector skips
// the vector leg (lexical-only degradation).
func (r *Retriever) Retrieve(ctx context.Context, queryText string, queryVector []float64, filters map[string]string, k int) (domain.RetrievalResult, error) {
	_, span := r.tracer.Start(ctx, "retriever.retrieve")
	defer span.End()

	if k <= 0 {
		return domain.RetrievalResult{}, nil
	}
	fetch := k * overFetchFactor

	var vectorHits []ScoredFragment
	if r.vector != nil && len(queryVector) > 0 {
		hits, err := r.vector.KNNSearch(ctx, queryVector, fetch, filters)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		vectorHits = hits
	}

	var lexicalHits []ScoredFragment
	if r.lexical != nil && queryText != "" {
		hits, err := r.lexical.Search(ctx, queryText, fetch, filters)
		if err != nil {
			return nil, fmt.Errorf("lexical search: %w", err)
		}
		lexicalHits = hits
	}

	fused := fuse(vectorHits, lexicalHits, r.fusion)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

// fuse accumulates weight/(κ+rank) per 1-indexed rank per list, deduplicates
// by fragment ID, and orders by fused score descending with fragment ID
// ascending as the deterministic tie-break.
func fuse(vectorHits, lexicalHits []ScoredFragment, cfg FusionConfig) domain.RetrievalResult {
	type entry struct {
		fragment domain.KnowledgeFragment
		score    float64
	}
	scores := make(map[string]*entry, len(vectorHits)+len(lexicalHits))

	accumulate := func(hits []ScoredFragment, weight float64) {
		for i, hit := range hits {
			rank := float64(i + 1)
			e, ok := scores[hit.Fragment.ID]
			if !ok {
				e = &entry{fragment: hit.Fragment}
				scores[hit.Fragment.ID] = e
			}
			e.score += weight / (cfg.RankConstant + rank)
		}
	}
	accumulate(vectorHits, cfg.VectorWeight)
	accumulate(lexicalHits, cfg.LexicalWeight)

	fused := make(domain.RetrievalResult, 0, len(scores))
	for _, e := range scores {
		fused = append(fused, domain.FusedFragment{Fragment: e.fragment, Score: e.score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Fragment.ID < fused[j].Fragment.ID
	})
	return fused
}
