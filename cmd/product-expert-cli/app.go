package main

import (
	"context"
	"fmt"

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

// app wires the full engine stack for one CLI invocation. Commands that
// only touch storage still pay for the lexical index open; that keeps the
// wiring in one place and the cost is a few milliseconds.
type app struct {
	cfg       *config.Config
	logger    *observability.Logger
	store     *storage.Store
	repos     *storage.Repositories
	registry  *registry.Registry
	cache     cache.Client
	embedder  embedding.Embedder
	generator generate.Generator
	lexical   *retrieval.LexicalIndex

	resolver  *resolve.Resolver
	retrieval *retrieval.Engine
	recommend *recommend.Engine
	comparer  *recommend.Comparer
	equiv     *recommend.EquivalenceFinder
	conflicts *conflicts.Resolver
}

// openApp opens storage, runs migrations, loads the registry, and builds
// every engine. Callers must defer a.close().
func openApp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*app, error) {
	store, err := storage.Open(ctx, storage.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		EmbeddingDim:    cfg.Database.EmbeddingDim,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	repos := storage.NewRepositories(store)
	if err := registry.Seed(ctx, repos.Registry); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed registry: %w", err)
	}
	reg, err := registry.New(ctx, repos.Registry, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load registry: %w", err)
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

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	lexical, err := retrieval.NewLexicalIndex(cfg.Retrieval.IndexPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	resolver := resolve.Default()
	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		repos:     repos,
		registry:  reg,
		cache:     cacheClient,
		embedder:  embedder,
		generator: generator,
		lexical:   lexical,
		resolver:  resolver,
		retrieval: retrieval.NewEngine(
			repos.Chunks, repos.Products, lexical, embedder,
			retrieval.NewParser(resolver, reg), cacheClient, logger,
			retrieval.Options{
				VectorTopK:    cfg.Retrieval.VectorTopK,
				LexicalTopK:   cfg.Retrieval.LexicalTopK,
				ContextBudget: cfg.Retrieval.ContextTokenBudget,
				MaxChunks:     cfg.Retrieval.MaxChunks,
				CacheTTL:      cfg.Redis.TTL,
			},
		),
		recommend: recommend.NewEngine(repos.Products, reg, logger),
		comparer:  recommend.NewComparer(repos.Products, repos.EquivalenceRules, reg),
		equiv:     recommend.NewEquivalenceFinder(repos.Products, repos.EquivalenceRules, reg),
		conflicts: conflicts.New(store, repos, reg, logger),
	}
	return a, nil
}

// newOrchestrator builds an ingestion pipeline bound to this app.
func (a *app) newOrchestrator() *ingest.Orchestrator {
	batcher := embedding.NewBatcher(a.embedder, a.cfg.Embedding.BatchSize, a.cfg.Embedding.MaxConcurrency)
	chunker := ingest.NewChunker(a.registry, a.cfg.Ingestion.ChunkTargetTokens)
	return ingest.New(
		a.store, a.repos, a.registry,
		extract.New(), a.resolver,
		fieldmap.New(a.registry, true),
		conflict.New(a.cfg.Recommendation.DefaultTolerance, a.cfg.Ingestion.PreferDatedRevision),
		batcher, chunker, a.lexical, a.logger,
		ingest.Options{
			Workers:            a.cfg.Ingestion.Workers,
			QueueDepth:         a.cfg.Ingestion.QueueDepth,
			ExtractTimeout:     a.cfg.Ingestion.ExtractTimeout,
			ShutdownTimeout:    a.cfg.Server.ShutdownTimeout,
			AutoCreateProducts: a.cfg.Ingestion.AutoCreateProducts,
			DocumentDir:        a.cfg.Ingestion.DocumentDir,
		},
	)
}

func (a *app) close() {
	a.lexical.Close()
	a.cache.Close()
	a.store.Close()
}

func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	if cfg.Embedding.Provider == "mock" {
		return embedding.NewMockClient(cfg.Embedding.Dimension), nil
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
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	return client, nil
}

func buildGenerator(cfg *config.Config) (generate.Generator, error) {
	if cfg.Generator.Provider == "mock" {
		return &generate.MockGenerator{}, nil
	}
	client, err := generate.NewHTTPClient(generate.Config{
		BaseURL: cfg.Generator.BaseURL,
		APIKey:  cfg.Generator.APIKey,
		Model:   cfg.Generator.Model,
		Timeout: cfg.Generator.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("generator client: %w", err)
	}
	return client, nil
}
