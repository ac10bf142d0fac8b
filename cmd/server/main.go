// Package main provides the entry point for the systematic review REST API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	httpserver "github.com/helixir/systematic-review-service/internal/server/http"
	"github.com/helixir/systematic-review-service/internal/sources"
	"github.com/helixir/systematic-review-service/internal/sources/arxiv"
	"github.com/helixir/systematic-review-service/internal/sources/openalex"
	"github.com/helixir/systematic-review-service/internal/sources/pubmed"
	"github.com/helixir/systematic-review-service/internal/sources/semanticscholar"
	"github.com/helixir/systematic-review-service/internal/store"
	"github.com/helixir/systematic-review-service/internal/temporal"
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

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("systematic-review-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("review")

	// Connect to PostgreSQL when the durable store is enabled.
	var db *database.DB
	var sessions store.SessionStore
	if cfg.Database.Enabled {
		db, err = database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		logger.Info().Msg("database connection established")

		// Run migrations if configured.
		if cfg.Database.MigrationAutoRun {
			migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
			if err != nil {
				return fmt.Errorf("create migrator: %w", err)
			}
			defer func() {
				if closeErr := migrator.Close(); closeErr != nil {
					logger.Error().Err(closeErr).Msg("failed to close migrator")
				}
			}()

			if err := migrator.Up(); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		sessions = store.NewPgStore(db)
	} else {
		logger.Warn().Msg("database disabled, review sessions are held in memory")
		sessions = store.NewMemoryStore()
	}

	// Pick the execution path: hand reviews to Temporal workers when
	// orchestration is enabled, otherwise run the pipeline in-process.
	var runner httpserver.ReviewRunner
	if cfg.Temporal.Enabled {
		clientCfg := temporal.ClientConfig{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			TaskQueue: cfg.Temporal.TaskQueue,
			Logger:    observability.NewTemporalLogger(logger),
		}
		temporalClient, err := temporal.NewClient(clientCfg)
		if err != nil {
			return fmt.Errorf("connect to temporal: %w", err)
		}
		logger.Info().
			Str("host_port", cfg.Temporal.HostPort).
			Str("namespace", cfg.Temporal.Namespace).
			Msg("temporal client connected")

		workflowClient := temporal.NewReviewWorkflowClient(temporalClient, clientCfg)
		defer workflowClient.Close()

		runner = temporal.NewWorkflowRunner(workflowClient, sessions, logger)
	} else {
		pipeline, cleanup, err := buildPipeline(ctx, cfg, sessions, metrics, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		runner = pipeline
	}

	// Create HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, sessions, runner, db, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("systematic-review-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down systematic-review-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("systematic-review-service shutdown complete")
	return nil
}

// buildPipeline wires the in-process review pipeline: source clients,
// PDF enrichment, embedding, dedup, screening, progress events and the
// optional embedding cache. The returned cleanup closes held connections.
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
