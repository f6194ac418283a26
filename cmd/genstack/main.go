// Command genstack serves the workflow execution engine: a JSON API for
// workflow and session management plus a websocket chat transport.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/genstack/genstack/chat"
	"github.com/genstack/genstack/config"
	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/nodes"
	"github.com/genstack/genstack/providers/ai"
	"github.com/genstack/genstack/providers/ai/gemini"
	aiopenai "github.com/genstack/genstack/providers/ai/openai"
	"github.com/genstack/genstack/providers/embedding"
	embopenai "github.com/genstack/genstack/providers/embedding/openai"
	"github.com/genstack/genstack/providers/vectorstore"
	"github.com/genstack/genstack/providers/websearch"
	"github.com/genstack/genstack/providers/websearch/duckduckgo"
	"github.com/genstack/genstack/providers/websearch/tavily"
	"github.com/genstack/genstack/server"
	"github.com/genstack/genstack/storage"
	"github.com/genstack/genstack/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		workflows storage.WorkflowStore
		chats     storage.ChatStore
		documents storage.DocumentStore
		store     vectorstore.SimilaritySearch
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := storage.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		pgStore := vectorstore.NewPgVectorStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}

		workflows = storage.NewPgWorkflowStore(pool)
		chats = storage.NewPgChatStore(pool)
		documents = storage.NewPgDocumentStore(pool)
		store = pgStore
		logger.Info("using postgres storage")
	} else {
		workflows = storage.NewMemoryWorkflowStore()
		chats = storage.NewMemoryChatStore()
		documents = storage.NewMemoryDocumentStore()
		store = vectorstore.NewMemoryStore()
		logger.Info("using in-memory storage")
	}

	chatProviders := map[string]ai.ChatCompletionProvider{
		"openai": aiopenai.New().WithAPIKey(cfg.OpenAIAPIKey),
		"gemini": gemini.New().WithAPIKey(cfg.GeminiAPIKey),
	}

	embeddings := embedding.NewRegistry(embopenai.New(embopenai.WithAPIKey(cfg.OpenAIAPIKey)))

	searchProviders := map[string]websearch.Provider{
		"duckduckgo": duckduckgo.New(),
	}
	defaultSearch := cfg.SearchProvider
	if cfg.TavilyAPIKey != "" {
		searchProviders["tavily"] = tavily.New(
			tavily.WithAPIKey(cfg.TavilyAPIKey),
			tavily.WithPageFetch(cfg.SearchFetchPages),
		)
	} else if defaultSearch == "tavily" {
		logger.Warn("tavily selected but TAVILY_API_KEY unset, falling back to duckduckgo")
		defaultSearch = "duckduckgo"
	}

	executors := nodes.Registry(nodes.Dependencies{
		Chat:          chatProviders,
		Embeddings:    embeddings,
		Store:         store,
		Search:        searchProviders,
		DefaultSearch: defaultSearch,
		Logger:        logger,
	})

	cache := workflow.NewValidationCache()
	eng := engine.New(executors,
		engine.WithLogger(logger.With("component", "engine")),
		engine.WithRunTimeout(cfg.RunTimeout),
		engine.WithValidationCache(cache),
	)

	coordinator := chat.NewCoordinator(eng, chats, cache, logger.With("component", "chat"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(server.Dependencies{
		Engine:      eng,
		Workflows:   workflows,
		Documents:   documents,
		Coordinator: coordinator,
		Cache:       cache,
		Registry:    registry,
		Logger:      logger.With("component", "server"),
	})

	return srv.Start(ctx, cfg.ListenAddr)
}
