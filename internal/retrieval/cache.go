package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"swing-advisor/internal/domain"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "retrieval:"

// Fetcher is the retrieval call the cache wraps.
type Fetcher interface {
	Retrieve(ctx context.Context, queryText string, queryVector []float64, filters map[string]string, k int) (domain.RetrievalResult, error)
}

// CachedRetriever wraps a Retriever with an explicit Redis cache keyed by
// (queryText, filters). The inner retriever never caches on its own; this
// wrapper is the caller-owned caching layer, with explicit invalidation.
// Cache failures fall through to the inner retriever.
type CachedRetriever struct {
	inner  Fetcher
	client *redis.Client
	ttl    time.Duration
}

func NewCachedRetriever(inner Fetcher, client *redis.Client, ttl time.Duration) *CachedRetriever {
	return &CachedRetriever{inner: inner, client: client, ttl: ttl}
}

func (c *CachedRetriever) Retrieve(ctx context.Context, queryText string, queryVector []float64, filters map[string]string, k int) (domain.RetrievalResult, error) {
	key := cacheKey(queryText, filters, k)

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var cached domain.RetrievalResult
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("retrieval cache get error: %v", err)
		}
	}

	result, err := c.inner.Retrieve(ctx, queryText, queryVector, filters, k)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if raw, jsonErr := json.Marshal(result); jsonErr == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				log.Printf("retrieval cache set error: %v", err)
			}
		}
	}
	return result, nil
}

// Invalidate drops every cached entry for the (queryText, filters) pair,
// across all k values.
func (c *CachedRetriever) Invalidate(ctx context.Context, queryText string, filters map[string]string) error {
	if c.client == nil {
		return nil
	}
	pattern := cacheKeyBase(queryText, filters) + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan retrieval cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete retrieval cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func cacheKey(queryText string, filters map[string]string, k int) string {
	return fmt.Sprintf("%s:%d", cacheKeyBase(queryText, filters), k)
}

func cacheKeyBase(queryText string, filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(queryText)
	for _, key := range keys {
		b.WriteString("|")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(filters[key])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
