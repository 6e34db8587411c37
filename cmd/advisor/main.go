package main

import (
	"context"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"

	"swing-advisor/internal/bot"
	"swing-advisor/internal/cache"
	"swing-advisor/internal/config"
	"swing-advisor/internal/db"
	"swing-advisor/internal/job"
	"swing-advisor/internal/llm"
	"swing-advisor/internal/marketstate"
	"swing-advisor/internal/provider"
	"swing-advisor/internal/repository"
	"swing-advisor/internal/retrieval"
	"swing-advisor/internal/service"
	"swing-advisor/pkg/tracing"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc     = godotenv.Load
	loadConfigFunc  = config.Load
	initTracerFunc  = tracing.InitTracer
	newPoolFunc     = db.NewPool
	newRedisFunc    = cache.NewClient
	startBotFunc    = bot.StartBot
	fatalFunc       = log.Fatalf
	setupSignalStop = ossignal.NotifyContext
)

func main() {
	if err := loadEnvFunc(); err != nil {
		log.Println("no .env file loaded, using process environment")
	}

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		fatalFunc("invalid configuration: %v", err)
		return
	}

	ctx, stop := setupSignalStop(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		fatalFunc("failed to initialize tracer: %v", err)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	pool, err := newPoolFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		fatalFunc("postgres: %v", err)
		return
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		fatalFunc("failed to run migrations: %v", err)
		return
	}

	priceRepo := repository.NewPriceRepository(pool, tracer)
	signalRepo := repository.NewSignalRepository(pool, tracer)

	// Retrieval stack: OpenSearch serves both legs; Redis caches fused
	// results across symbols that produce the same query text.
	search := provider.NewOpenSearchClient(tracer, cfg.OpenSearchURL, cfg.OpenSearchIndex)
	retriever := retrieval.NewRetriever(tracer, search, search, retrieval.FusionConfig{
		RankConstant:  cfg.RRFRankConstant,
		VectorWeight:  cfg.RRFVectorWeight,
		LexicalWeight: cfg.RRFLexicalWeight,
	})

	var knowledge service.KnowledgeRetriever = retriever
	if cfg.RedisURL != "" {
		redisClient, err := newRedisFunc(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("redis unavailable, retrieval cache disabled: %v", err)
		} else {
			defer redisClient.Close()
			knowledge = retrieval.NewCachedRetriever(retriever, redisClient, cfg.RetrievalCacheTTL)
		}
	}

	llmClient := newLLMClient(tracer, cfg)

	analysis := service.NewAnalysisService(
		tracer,
		priceRepo,
		marketstate.NewBuilder(nil),
		knowledge,
		llmClient,
		llmClient,
		cfg.Weights,
		cfg.LookbackDays,
		cfg.RetrievalK,
	)
	watchlist := service.NewWatchlistAnalyzer(tracer, analysis, cfg.MaxConcurrent, cfg.SymbolTimeout)

	notifier := startBotFunc(cfg.TelegramBotToken, cfg.TelegramChatIDs, signalRepo)
	publisher := job.NewResultPublisher(signalRepo, notifierOrNil(notifier))

	runner := job.NewCycleRunner(tracer, watchlist, publisher, cfg.Watchlist, cfg.CycleInterval)
	runner.Start(ctx)
}

func newLLMClient(tracer trace.Tracer, cfg *config.Config) *llm.Client {
	return llm.NewClient(tracer, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEmbedModel)
}

// notifierOrNil keeps a typed-nil *bot.Notifier from masquerading as a
// non-nil SignalNotifier inside the publisher.
func notifierOrNil(n *bot.Notifier) job.SignalNotifier {
	if n == nil {
		return nil
	}
	return n
}
