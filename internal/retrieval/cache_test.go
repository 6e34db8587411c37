package retrieval

import (
	"context"
	"testing"
	"time"

	"swing-advisor/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingFetcher struct {
	calls  int
	result domain.RetrievalResult
}

func (c *countingFetcher) Retrieve(ctx context.Context, queryText string, queryVector []float64, filters map[string]string, k int) (domain.RetrievalResult, error) {
	c.calls++
	return c.result, nil
}

func newCacheFixture(t *testing.T) (*countingFetcher, *CachedRetriever, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	fetcher := &countingFetcher{
		result: domain.RetrievalResult{
			{Fragment: domain.KnowledgeFragment{ID: "A", Text: "buy the dip", SourceTitle: "Swing Basics"}, Score: 0.5},
		},
	}
	return fetcher, NewCachedRetriever(fetcher, client, time.Minute), mr
}

func TestCachedRetrieverServesSecondCallFromCache(t *testing.T) {
	fetcher, cached, _ := newCacheFixture(t)
	ctx := context.Background()
	filters := map[string]string{"strategy_type": "swing_trading"}

	first, err := cached.Retrieve(ctx, "rsi oversold", nil, filters, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cached.Retrieve(ctx, "rsi oversold", nil, filters, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.calls != 1 {
		t.Fatalf("expected a single inner call, got %d", fetcher.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Fragment.ID != "A" {
		t.Fatalf("unexpected cached result: %+v", second)
	}
}

func TestCachedRetrieverKeyIncludesFiltersAndK(t *testing.T) {
	fetcher, cached, _ := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cached.Retrieve(ctx, "q", nil, map[string]string{"timeframe": "daily"}, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.Retrieve(ctx, "q", nil, map[string]string{"timeframe": "weekly"}, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.Retrieve(ctx, "q", nil, map[string]string{"timeframe": "daily"}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.calls != 3 {
		t.Fatalf("expected 3 inner calls for distinct keys, got %d", fetcher.calls)
	}
}

func TestCachedRetrieverInvalidate(t *testing.T) {
	fetcher, cached, _ := newCacheFixture(t)
	ctx := context.Background()
	filters := map[string]string{"strategy_type": "swing_trading"}

	if _, err := cached.Retrieve(ctx, "q", nil, filters, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cached.Invalidate(ctx, "q", filters); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.Retrieve(ctx, "q", nil, filters, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetcher.calls != 2 {
		t.Fatalf("expected refetch after invalidation, got %d calls", fetcher.calls)
	}
}

func TestCachedRetrieverFallsThroughWhenRedisDown(t *testing.T) {
	fetcher, cached, mr := newCacheFixture(t)
	mr.Close()

	result, err := cached.Retrieve(context.Background(), "q", nil, nil, 5)
	if err != nil {
		t.Fatalf("expected fallthrough, got error: %v", err)
	}
	if len(result) != 1 || fetcher.calls != 1 {
		t.Fatalf("expected inner result, got %+v (calls=%d)", result, fetcher.calls)
	}
}
