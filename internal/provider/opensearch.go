// Package provider holds adapters for external data services.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"swing-advisor/internal/domain"
	"swing-advisor/internal/retrieval"

	"go.opentelemetry.io/otel/trace"
)

const opensearchRequestTimeout = 10 * time.Second

// OpenSearchClient serves both retrieval legs against a single index: k-NN
// search over the embedding field and BM25 search over the text field.
// Fragment metadata lives under the metadata object, so filters become term
// queries on metadata.<field>.
type OpenSearchClient struct {
	tracer  trace.Tracer
	httpc   *http.Client
	baseURL string
	index   string
}

func NewOpenSearchClient(tracer trace.Tracer, baseURL, index string) *OpenSearchClient {
	return &OpenSearchClient{
		tracer:  tracer,
		httpc:   &http.Client{Timeout: opensearchRequestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		index:   index,
	}
}

type searchHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		Text     string            `json:"text"`
		Source   string            `json:"source_title"`
		Chapter  string            `json:"chapter"`
		Page     int               `json:"page"`
		Metadata map[string]string `json:"metadata"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// KNNSearch runs a k-nearest-neighbor query over the embedding field.
func (c *OpenSearchClient) KNNSearch(ctx context.Context, vector []float64, k int, filters map[string]string) ([]retrieval.ScoredFragment, error) {
	ctx, span := c.tracer.Start(ctx, "opensearch.knn_search")
	defer span.End()

	knn := map[string]any{
		"embedding": map[string]any{
			"vector": vector,
			"k":      k,
		},
	}
	if f := filterClauses(filters); f != nil {
		knn["embedding"].(map[string]any)["filter"] = map[string]any{
			"bool": map[string]any{"must": f},
		}
	}
	body := map[string]any{
		"size":  k,
		"query": map[string]any{"knn": knn},
	}
	return c.search(ctx, body)
}

// Search runs a BM25 match query over the fragment text.
func (c *OpenSearchClient) Search(ctx context.Context, text string, k int, filters map[string]string) ([]retrieval.ScoredFragment, error) {
	ctx, span := c.tracer.Start(ctx, "opensearch.lexical_search")
	defer span.End()

	must := []map[string]any{
		{"match": map[string]any{"text": text}},
	}
	must = append(must, filterClauses(filters)...)
	body := map[string]any{
		"size":  k,
		"query": map[string]any{"bool": map[string]any{"must": must}},
	}
	return c.search(ctx, body)
}

func (c *OpenSearchClient) search(ctx context.Context, body map[string]any) ([]retrieval.ScoredFragment, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]retrieval.ScoredFragment, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, retrieval.ScoredFragment{
			Fragment: domain.KnowledgeFragment{
				ID:          hit.ID,
				Text:        hit.Source.Text,
				SourceTitle: hit.Source.Source,
				Chapter:     hit.Source.Chapter,
				Page:        hit.Source.Page,
				Tags:        hit.Source.Metadata,
			},
			Score: hit.Score,
		})
	}
	return out, nil
}

func filterClauses(filters map[string]string) []map[string]any {
	if len(filters) == 0 {
		return nil
	}
	clauses := make([]map[string]any, 0, len(filters))
	for field, value := range filters {
		clauses = append(clauses, map[string]any{
			"term": map[string]any{"metadata." + field: value},
		})
	}
	return clauses
}
