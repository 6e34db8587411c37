package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"swing-advisor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubVectorIndex struct {
	hits     []ScoredFragment
	err      error
	gotK     int
	gotQuery []float64
}

func (s *stubVectorIndex) KNNSearch(ctx context.Context, vector []float64, k int, filters map[string]string) ([]ScoredFragment, error) {
	s.gotK = k
	s.gotQuery = vector
	return s.hits, s.err
}

type stubLexicalIndex struct {
	hits []ScoredFragment
	err  error
	gotK int
}

func (s *stubLexicalIndex) Search(ctx context.Context, text string, k int, filters map[string]string) ([]ScoredFragment, error) {
	s.gotK = k
	return s.hits, s.err
}

func frag(id string) ScoredFragment {
	return ScoredFragment{Fragment: domain.KnowledgeFragment{ID: id, Text: "text " + id, SourceTitle: "book " + id}}
}

func hits(ids ...string) []ScoredFragment {
	out := make([]ScoredFragment, 0, len(ids))
	for _, id := range ids {
		out = append(out, frag(id))
	}
	return out
}

func newTestRetriever(v VectorIndex, l LexicalIndex) *Retriever {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewRetriever(tracer, v, l, DefaultFusionConfig())
}

func TestRetrieveFusesWithReciprocalRanks(t *testing.T) {
	// vector [A,B,C], lexical [B,A,D] with κ=60:
	// A = 1/61+1/62, B = 1/62+1/61, C = 1/63, D = 1/63.
	vector := &stubVectorIndex{hits: hits("A", "B", "C")}
	lexical := &stubLexicalIndex{hits: hits("B", "A", "D")}
	r := newTestRetriever(vector, lexical)

	result, err := r.Retrieve(context.Background(), "query", []float64{0.1}, nil, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 4 {
		t.Fatalf("expected 4 fragments, got %d", len(result))
	}

	wantAB := 1.0/61 + 1.0/62
	wantCD := 1.0 / 63
	if math.Abs(result[0].Score-wantAB) > 1e-15 || math.Abs(result[1].Score-wantAB) > 1e-15 {
		t.Fatalf("unexpected top scores: %v, %v", result[0].Score, result[1].Score)
	}
	// A and B tie exactly; fragment ID breaks the tie.
	if result[0].Fragment.ID != "A" || result[1].Fragment.ID != "B" {
		t.Fatalf("expected A,B order on tie, got %s,%s", result[0].Fragment.ID, result[1].Fragment.ID)
	}
	if result[2].Fragment.ID != "C" || result[3].Fragment.ID != "D" {
		t.Fatalf("expected C,D on equal singleton scores, got %s,%s", result[2].Fragment.ID, result[3].Fragment.ID)
	}
	if math.Abs(result[2].Score-wantCD) > 1e-15 {
		t.Fatalf("unexpected singleton score: %v", result[2].Score)
	}
}

func TestRetrieveIsOrderIndependentAcrossLists(t *testing.T) {
	a := hits("A", "B", "C")
	b := hits("B", "A", "D")

	first, err := newTestRetriever(&stubVectorIndex{hits: a}, &stubLexicalIndex{hits: b}).
		Retrieve(context.Background(), "q", []float64{1}, nil, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := newTestRetriever(&stubVectorIndex{hits: b}, &stubLexicalIndex{hits: a}).
		Retrieve(context.Background(), "q", []float64{1}, nil, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Fragment.ID != second[i].Fragment.ID {
			t.Fatalf("position %d differs after swapping lists: %s vs %s", i, first[i].Fragment.ID, second[i].Fragment.ID)
		}
	}
}

func TestRetrieveIdempotentWithIdenticalLists(t *testing.T) {
	same := hits("X", "M", "A")
	r := newTestRetriever(&stubVectorIndex{hits: same}, &stubLexicalIndex{hits: same})

	result, err := r.Retrieve(context.Background(), "q", []float64{1}, nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"X", "M", "A"}
	for i, id := range want {
		if result[i].Fragment.ID != id {
			t.Fatalf("expected original order preserved, got %v at %d", result[i].Fragment.ID, i)
		}
	}
}

func TestRetrieveScoresAreNonIncreasing(t *testing.T) {
	r := newTestRetriever(
		&stubVectorIndex{hits: hits("A", "B", "C", "D", "E")},
		&stubLexicalIndex{hits: hits("E", "C", "F")},
	)
	result, err := r.Retrieve(context.Background(), "q", []float64{1}, nil, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(result); i++ {
		if result[i].Score > result[i-1].Score {
			t.Fatalf("scores increase at position %d", i)
		}
	}
}

func TestRetrieveEmptyCandidateSetIsNotAnError(t *testing.T) {
	r := newTestRetriever(&stubVectorIndex{}, &stubLexicalIndex{})
	result, err := r.Retrieve(context.Background(), "q", []float64{1}, map[string]string{"strategy_type": "swing_trading"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty result, got %d", len(result))
	}
}

func TestRetrieveOverFetchesEachList(t *testing.T) {
	vector := &stubVectorIndex{hits: hits("A")}
	lexical := &stubLexicalIndex{hits: hits("B")}
	r := newTestRetriever(vector, lexical)

	if _, err := r.Retrieve(context.Background(), "q", []float64{1}, nil, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector.gotK != 10 || lexical.gotK != 10 {
		t.Fatalf("expected both lists fetched at 2k=10, got %d and %d", vector.gotK, lexical.gotK)
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	r := newTestRetriever(&stubVectorIndex{hits: hits("A", "B", "C", "D")}, &stubLexicalIndex{})
	result, err := r.Retrieve(context.Background(), "q", []float64{1}, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(result))
	}
}

func TestRetrieveSkipsVectorLegWithoutQueryVector(t *testing.T) {
	vector := &stubVectorIndex{hits: hits("A")}
	lexical := &stubLexicalIndex{hits: hits("B")}
	r := newTestRetriever(vector, lexical)

	result, err := r.Retrieve(context.Background(), "q", nil, nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Fragment.ID != "B" {
		t.Fatalf("expected lexical-only result, got %+v", result)
	}
	if vector.gotQuery != nil {
		t.Fatal("vector index must not be called without a query vector")
	}
}

func TestRetrievePropagatesIndexFailures(t *testing.T) {
	wantErr := errors.New("cluster unavailable")
	r := newTestRetriever(&stubVectorIndex{err: wantErr}, &stubLexicalIndex{})
	if _, err := r.Retrieve(context.Background(), "q", []float64{1}, nil, 3); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped index error, got %v", err)
	}
}
