package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfigInvalid marks configuration that must abort startup; no analysis
// cycle runs with invalid scoring weights or fusion constants.
var ErrConfigInvalid = errors.New("invalid configuration")

const weightSumTolerance = 1e-9

// ScoreWeights are the fixed weights of the confidence formula. They must sum
// to 1.0; this is checked once at load, never at call time.
type ScoreWeights struct {
	LLM               float64
	SourceAgreement   float64
	IndicatorStrength float64
	PatternConfidence float64
}

func (w ScoreWeights) Sum() float64 {
	return w.LLM + w.SourceAgreement + w.IndicatorStrength + w.PatternConfidence
}

type Config struct {
	DatabaseURL      string
	RedisURL         string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIEmbedModel string
	OpenSearchURL    string
	OpenSearchIndex  string
	TelegramBotToken string
	TelegramChatIDs  []int64

	Watchlist    []string
	LookbackDays int

	RetrievalK       int
	RRFRankConstant  float64
	RRFVectorWeight  float64
	RRFLexicalWeight float64

	Weights ScoreWeights

	MaxConcurrent     int
	SymbolTimeout     time.Duration
	RetrievalCacheTTL time.Duration
	CycleInterval     time.Duration
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenSearchURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("OPENSEARCH_URL")), "/"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, signal drafting will be disabled")
	}
	if cfg.OpenSearchURL == "" {
		log.Println("Warning: OPENSEARCH_URL not set, retrieval will be disabled")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.OpenAIEmbedModel = strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if cfg.OpenAIEmbedModel == "" {
		cfg.OpenAIEmbedModel = "text-embedding-3-small"
	}
	cfg.OpenSearchIndex = strings.TrimSpace(os.Getenv("OPENSEARCH_INDEX"))
	if cfg.OpenSearchIndex == "" {
		cfg.OpenSearchIndex = "trading-knowledge"
	}

	cfg.TelegramChatIDs = parseChatIDs(os.Getenv("TELEGRAM_CHAT_IDS"))
	cfg.Watchlist = parseWatchlist(os.Getenv("WATCHLIST"))

	cfg.LookbackDays = 300
	if v := strings.TrimSpace(os.Getenv("LOOKBACK_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LookbackDays = n
		}
	}

	cfg.RetrievalK = 5
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_K")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetrievalK = n
		}
	}

	cfg.RRFRankConstant = 60
	if v := strings.TrimSpace(os.Getenv("RRF_RANK_CONSTANT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RRFRankConstant = n
		}
	}

	cfg.RRFVectorWeight = 1.0
	if v := strings.TrimSpace(os.Getenv("RRF_VECTOR_WEIGHT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RRFVectorWeight = n
		}
	}

	cfg.RRFLexicalWeight = 1.0
	if v := strings.TrimSpace(os.Getenv("RRF_LEXICAL_WEIGHT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RRFLexicalWeight = n
		}
	}

	cfg.Weights = ScoreWeights{
		LLM:               0.30,
		SourceAgreement:   0.35,
		IndicatorStrength: 0.25,
		PatternConfidence: 0.10,
	}
	if v := strings.TrimSpace(os.Getenv("SCORE_WEIGHT_LLM")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weights.LLM = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCORE_WEIGHT_SOURCES")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weights.SourceAgreement = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCORE_WEIGHT_INDICATORS")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weights.IndicatorStrength = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCORE_WEIGHT_PATTERNS")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weights.PatternConfidence = n
		}
	}

	cfg.MaxConcurrent = 4
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}

	cfg.SymbolTimeout = 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("SYMBOL_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SymbolTimeout = time.Duration(n) * time.Second
		}
	}

	cfg.RetrievalCacheTTL = 15 * time.Minute
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetrievalCacheTTL = time.Duration(n) * time.Second
		}
	}

	cfg.CycleInterval = 0
	if v := strings.TrimSpace(os.Getenv("CYCLE_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CycleInterval = time.Duration(n) * time.Second
		}
	}

	return cfg
}

// Validate enforces the invariants that make scoring and fusion reproducible.
// A failure here is fatal at startup.
func (c *Config) Validate() error {
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: score weights sum to %v, want 1.0", ErrConfigInvalid, sum)
	}
	if c.Weights.LLM < 0 || c.Weights.SourceAgreement < 0 ||
		c.Weights.IndicatorStrength < 0 || c.Weights.PatternConfidence < 0 {
		return fmt.Errorf("%w: score weights must be non-negative", ErrConfigInvalid)
	}
	if c.RRFRankConstant <= 0 {
		return fmt.Errorf("%w: RRF rank constant must be > 0, got %v", ErrConfigInvalid, c.RRFRankConstant)
	}
	if c.RRFVectorWeight <= 0 || c.RRFLexicalWeight <= 0 {
		return fmt.Errorf("%w: RRF list weights must be > 0", ErrConfigInvalid)
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("%w: retrieval k must be > 0, got %d", ErrConfigInvalid, c.RetrievalK)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: max concurrent must be > 0, got %d", ErrConfigInvalid, c.MaxConcurrent)
	}
	return nil
}

func parseWatchlist(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}

func parseChatIDs(raw string) []int64 {
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Warning: skipping invalid Telegram chat id %q", part)
			continue
		}
		out = append(out, id)
	}
	return out
}
