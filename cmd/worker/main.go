// Package main provides the entry point for the systematic review Temporal worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/config"
	"github.com/helixir/systematic-review-service/internal/database"
	"github.com/helixir/systematic-review-service/internal/dedup"
	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/embedding"
	"github.com/helixir/systematic-review-service/internal/events"
	"github.com/helixir/systematic-review-service/internal/filter"
	"github.com/helixir/systematic-review-service/internal/observability"
	"github.com/helixir/systematic-review-service/internal/pdf"
	"github.com/helixir/systematic-review-service/internal/review"
	"github.com/helixir/systematic-review-service/internal/screening"
	"github.com/helixir/systematic-review-service/internal/search"
	"github.com/helixir/systematic-review-service/internal/sources"
	"github.com/helixir/systematic-review-service/internal/sources/arxiv"
	"github.com/helixir/systematic-review-service/internal/sources/openalex"
	"github.com/helixir/systematic-review-service/internal/sources/pubmed"
	"github.com/helixir/systematic-review-service/internal/sources/semanticscholar"
	"github.com/helixir/systematic-review-service/internal/store"
	"github.com/helixir/systematic-review-service/internal/temporal"
	"github.com/helixir/systematic-review-service/internal/temporal/activities"
	"github.com/helixir/systematic-review-service/internal/temporal/workflows"
	"github.com/helixir/systematic-review-service/internal/translate"
	"github.com/helixir/systematic-review-service/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Temporal.Enabled {
		return fmt.Errorf("temporal.enabled must be true to run the worker")
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("systematic-review-service worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("review")

	// Connect to PostgreSQL. The worker persists sessions and results the
	// API server reads back, so the durable store is mandatory here.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	sessions := store.NewPgStore(db)

	// Wire the review pipeline the activities execute.
	pipeline, cleanup, err := buildPipeline(ctx, cfg, sessions, metrics, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Create the worker and register the review workflow and activity.
	w, err := temporal.NewWorker(temporalClient, temporal.WorkerConfig{
		TaskQueue: cfg.Temporal.TaskQueue,
	})
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	w.RegisterWorkflow(workflows.ReviewWorkflow)
	w.RegisterActivity(activities.NewReviewActivities(pipeline, logger))

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Run the worker until a signal arrives or it fails.
	if err := temporal.StartWorker(ctx, w); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}
	return nil
}

// buildPipeline wires the review pipeline executed by the worker's
// activities: source clients, PDF enrichment, embedding, dedup, screening,
// progress events and the optional embedding cache.
func buildPipeline(ctx context.Context, cfg *config.Config, sessions store.SessionStore, metrics *observability.Metrics, logger zerolog.Logger) (*review.Runner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Register enabled bibliographic sources.
	registry := sources.NewRegistry()
	sourceTypes := registerSources(registry, cfg, logger)
	if len(sourceTypes) == 0 {
		return nil, nil, fmt.Errorf("no bibliographic sources enabled")
	}

	// PDF enrichment.
	downloader := pdf.NewDownloader(pdf.DownloaderConfig{
		MaxSize:   cfg.Pipeline.PDFMaxBytes,
		UserAgent: "Helixir-SystematicReview/1.0",
	})
	extractor := pdf.NewExtractor(pdf.ExtractorConfig{
		MaxPages: cfg.Pipeline.PDFMaxPages,
	})
	enricher := search.NewEnricher(downloader, extractor, search.EnricherConfig{
		Workers: cfg.Pipeline.EnrichmentWorkers,
	}, metrics, logger)

	orchestrator := search.NewOrchestrator(registry, enricher, metrics, logger)

	// Embedding provider.
	embedder, err := embedding.NewEmbedder(cfg.Embedding.Provider, embedding.OpenAIConfig{
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimension:  cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
		MaxRetries: cfg.Embedding.MaxRetries,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}

	// Question translation is optional.
	var translator translate.Translator
	if cfg.Translation.Enabled {
		translator = translate.NewDeepLClient(cfg.Translation.APIKey, cfg.Translation.BaseURL, cfg.Translation.Timeout)
		logger.Info().Msg("question translation enabled")
	}

	semantic := dedup.NewSemanticChecker(embedder, dedup.SemanticConfig{
		Threshold:   cfg.Pipeline.DuplicateThreshold,
		FullTextCap: cfg.Pipeline.FullTextCapChars,
	}, logger)
	deduper := dedup.NewPipeline(semantic)

	screener := screening.NewScreener(embedder, translator, screening.Config{
		Threshold:   cfg.Pipeline.ScreeningThreshold,
		URLFloor:    cfg.Pipeline.URLSimilarityFloor,
		TargetCount: cfg.Pipeline.TargetCount,
		FullTextCap: cfg.Pipeline.FullTextCapChars,
	}, logger)

	// Progress events.
	var publisher events.Publisher = events.NewNopPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(events.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		closers = append(closers, func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka publisher")
			}
		})
		publisher = kafkaPublisher
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("progress events enabled")
	}

	// Embedding cache.
	var vectors vectorstore.VectorStore
	if cfg.Qdrant.Enabled {
		qdrantClient, err := vectorstore.NewClient(vectorstore.Config{
			Address:        cfg.Qdrant.Address,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     uint64(cfg.Embedding.Dimensions),
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create qdrant client: %w", err)
		}
		closers = append(closers, func() {
			if err := qdrantClient.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close qdrant client")
			}
		})

		if err := qdrantClient.EnsureCollection(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ensure qdrant collection: %w", err)
		}
		logger.Info().
			Str("address", cfg.Qdrant.Address).
			Str("collection", cfg.Qdrant.CollectionName).
			Msg("qdrant client connected")
		vectors = qdrantClient
	}

	runner := review.NewRunner(review.Params{
		Store:     sessions,
		Searcher:  orchestrator,
		Filter:    filter.New(logger),
		Deduper:   deduper,
		Screener:  screener,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
		Vectors:   vectors,
		Embedder:  embedder,
	}, review.Config{
		SourceTypes: sourceTypes,
		RunTimeout:  cfg.Pipeline.SearchCeiling,
	})
	return runner, cleanup, nil
}

// registerSources registers all enabled bibliographic sources and returns
// the source types queried during identification.
func registerSources(registry *sources.Registry, cfg *config.Config, logger zerolog.Logger) []domain.SourceType {
	var types []domain.SourceType

	// Semantic Scholar.
	if cfg.Sources.SemanticScholar.Enabled {
		ssCfg := cfg.Sources.SemanticScholar
		registry.Register(semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:    ssCfg.BaseURL,
			APIKey:     ssCfg.APIKey,
			Timeout:    ssCfg.Timeout,
			RateLimit:  ssCfg.RateLimit,
			BurstSize:  ssCfg.BurstSize,
			MaxResults: ssCfg.MaxResults,
			Enabled:    true,
		}, nil))
		types = append(types, domain.SourceTypeSemanticScholar)
		logger.Info().Msg("registered source: Semantic Scholar")
	}

	// PubMed.
	if cfg.Sources.PubMed.Enabled {
		pmCfg := cfg.Sources.PubMed
		registry.Register(pubmed.New(pubmed.Config{
			BaseURL:    pmCfg.BaseURL,
			APIKey:     pmCfg.APIKey,
			Email:      cfg.Sources.Email,
			Timeout:    pmCfg.Timeout,
			RateLimit:  pmCfg.RateLimit,
			BurstSize:  pmCfg.BurstSize,
			MaxResults: pmCfg.MaxResults,
			Enabled:    true,
		}))
		types = append(types, domain.SourceTypePubMed)
		logger.Info().Msg("registered source: PubMed")
	}

	// arXiv.
	if cfg.Sources.ArXiv.Enabled {
		axCfg := cfg.Sources.ArXiv
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:    axCfg.BaseURL,
			Timeout:    axCfg.Timeout,
			RateLimit:  axCfg.RateLimit,
			BurstSize:  axCfg.BurstSize,
			MaxResults: axCfg.MaxResults,
			Enabled:    true,
		}))
		types = append(types, domain.SourceTypeArXiv)
		logger.Info().Msg("registered source: arXiv")
	}

	// OpenAlex.
	if cfg.Sources.OpenAlex.Enabled {
		oaCfg := cfg.Sources.OpenAlex
		registry.Register(openalex.New(openalex.Config{
			BaseURL:    oaCfg.BaseURL,
			Email:      cfg.Sources.Email,
			Timeout:    oaCfg.Timeout,
			RateLimit:  oaCfg.RateLimit,
			BurstSize:  oaCfg.BurstSize,
			MaxResults: oaCfg.MaxResults,
			Enabled:    true,
		}))
		types = append(types, domain.SourceTypeOpenAlex)
		logger.Info().Msg("registered source: OpenAlex")
	}

	return types
}
