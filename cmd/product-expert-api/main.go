package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coldstore-ai/product-expert/cmd/product-expert-api/handlers"
	"github.com/coldstore-ai/product-expert/internal/cache"
	"github.com/coldstore-ai/product-expert/internal/config"
	"github.com/coldstore-ai/product-expert/internal/conflict"
	"github.com/coldstore-ai/product-expert/internal/conflicts"
	"github.com/coldstore-ai/product-expert/internal/embedding"
	"github.com/coldstore-ai/product-expert/internal/extract"
	"github.com/coldstore-ai/product-expert/internal/fieldmap"
	"github.com/coldstore-ai/product-expert/internal/generate"
	"github.com/coldstore-ai/product-expert/internal/ingest"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/recommend"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/resolve"
	"github.com/coldstore-ai/product-expert/internal/retrieval"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "product-expert",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		EmbeddingDim:    cfg.Database.EmbeddingDim,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("store open failed")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	repos := storage.NewRepositories(store)
	if err := registry.Seed(ctx, repos.Registry); err != nil {
		logger.Fatal().Err(err).Msg("registry seed failed")
	}
	reg, err := registry.New(ctx, repos.Registry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("registry load failed")
	}

	var cacheClient cache.Client
	if cfg.Redis.Enabled {
		rc := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.KeyPrefix, cfg.Redis.DB)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, using in-memory cache")
			cacheClient = cache.NewMemoryClient()
		} else {
			cacheClient = rc
		}
	} else {
		cacheClient = cache.NewMemoryClient()
	}
	defer cacheClient.Close()

	embedder := buildEmbedder(cfg, logger)
	generator := buildGenerator(cfg, logger)

	lexical, err := retrieval.NewLexicalIndex(cfg.Retrieval.IndexPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("lexical index open failed")
	}
	defer lexical.Close()

	resolver := resolve.Default()
	mapper := fieldmap.New(reg, true)
	engine := conflict.New(cfg.Recommendation.DefaultTolerance, cfg.Ingestion.PreferDatedRevision)
	batcher := embedding.NewBatcher(embedder, cfg.Embedding.BatchSize, cfg.Embedding.MaxConcurrency)
	chunker := ingest.NewChunker(reg, cfg.Ingestion.ChunkTargetTokens)

	orchestrator := ingest.New(
		store, repos, reg,
		extract.New(), resolver, mapper, engine, batcher, chunker,
		lexical, logger,
		ingest.Options{
			Workers:            cfg.Ingestion.Workers,
			QueueDepth:         cfg.Ingestion.QueueDepth,
			ExtractTimeout:     cfg.Ingestion.ExtractTimeout,
			ShutdownTimeout:    cfg.Server.ShutdownTimeout,
			AutoCreateProducts: cfg.Ingestion.AutoCreateProducts,
			DocumentDir:        cfg.Ingestion.DocumentDir,
		},
	)
	orchestrator.Start(ctx)
	defer orchestrator.Stop()

	retrievalEngine := retrieval.NewEngine(
		repos.Chunks, repos.Products, lexical, embedder,
		retrieval.NewParser(resolver, reg), cacheClient, logger,
		retrieval.Options{
			VectorTopK:    cfg.Retrieval.VectorTopK,
			LexicalTopK:   cfg.Retrieval.LexicalTopK,
			ContextBudget: cfg.Retrieval.ContextTokenBudget,
			MaxChunks:     cfg.Retrieval.MaxChunks,
			CacheTTL:      cfg.Redis.TTL,
		},
	)
	recommendEngine := recommend.NewEngine(repos.Products, reg, logger)
	comparer := recommend.NewComparer(repos.Products, repos.EquivalenceRules, reg)
	equivalents := recommend.NewEquivalenceFinder(repos.Products, repos.EquivalenceRules, reg)
	conflictResolver := conflicts.New(store, repos, reg, logger)

	router := newRouter(routerDeps{
		cfg:    cfg,
		logger: logger,
		store:  store,
		ingestion: handlers.NewIngestionHandler(
			logger, orchestrator, repos.Jobs, repos.Documents, cfg.Server.MaxUploadMB),
		products: handlers.NewProductHandler(
			logger, repos.Products, repos.Versions, repos.Relationships, repos.Links, equivalents),
		query: handlers.NewQueryHandler(
			logger, retrievalEngine, generator, cfg.Generator.MaxTokens),
		recommend: handlers.NewRecommendHandler(logger, recommendEngine, comparer),
		admin: handlers.NewAdminHandler(logger, conflictResolver, reg, repos, &handlers.StatsSource{
			Store: store, Repos: repos, Lexical: lexical, Embedder: embedder,
		}),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("driver", store.Driver()).
			Str("embedding_model", embedder.Model()).
			Msg("API listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("server error")
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		_ = srv.Close()
	}
	logger.Info().Msg("server stopped")
}

func buildEmbedder(cfg *config.Config, logger *observability.Logger) embedding.Embedder {
	if cfg.Embedding.Provider == "mock" {
		return embedding.NewMockClient(cfg.Embedding.Dimension)
	}
	client, err := embedding.NewHTTPClient(embedding.Config{
		BaseURL:       cfg.Embedding.BaseURL,
		APIKey:        cfg.Embedding.APIKey,
		Model:         cfg.Embedding.Model,
		Dimension:     cfg.Embedding.Dimension,
		Timeout:       cfg.Embedding.Timeout,
		MaxRetries:    cfg.Embedding.MaxRetries,
		RetryBaseWait: cfg.Embedding.RetryBaseDelay,
		RetryMaxWait:  cfg.Embedding.RetryMaxDelay,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("embedding client init failed")
	}
	return client
}

func buildGenerator(cfg *config.Config, logger *observability.Logger) generate.Generator {
	if cfg.Generator.Provider == "mock" {
		return &generate.MockGenerator{}
	}
	client, err := generate.NewHTTPClient(generate.Config{
		BaseURL: cfg.Generator.BaseURL,
		APIKey:  cfg.Generator.APIKey,
		Model:   cfg.Generator.Model,
		Timeout: cfg.Generator.Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("generator client init failed")
	}
	return client
}
