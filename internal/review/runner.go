// Package review runs the systematic review pipeline: identification
// across bibliographic sources, criteria filtering, exact and semantic
// deduplication, and embedding-based relevance screening. Each stage
// records its survivor count so every review, including one that ends
// with zero included articles, carries a full PRISMA funnel.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/dedup"
	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/events"
	"github.com/helixir/systematic-review-service/internal/filter"
	"github.com/helixir/systematic-review-service/internal/observability"
	"github.com/helixir/systematic-review-service/internal/screening"
	"github.com/helixir/systematic-review-service/internal/search"
	"github.com/helixir/systematic-review-service/internal/sources"
	"github.com/helixir/systematic-review-service/internal/store"
	"github.com/helixir/systematic-review-service/internal/vectorstore"
)

const (
	// defaultRunTimeout is the wall-clock ceiling for one review run.
	defaultRunTimeout = 10 * time.Minute

	// corpusEmbedCap bounds the full-text characters fed to an embedding
	// when caching the included corpus.
	corpusEmbedCap = 15000
)

// Searcher runs the identification stage across bibliographic sources.
type Searcher interface {
	Search(ctx context.Context, params sources.SearchParams, sourceTypes []domain.SourceType) (*search.Result, error)
}

// Deduper removes exact and semantic duplicates from a corpus.
type Deduper interface {
	Run(ctx context.Context, articles []*domain.Article) (*dedup.Result, error)
}

// Screener ranks articles against the research question and selects the
// final included set.
type Screener interface {
	Screen(ctx context.Context, articles []*domain.Article, query screening.Query, targetCount int) (*screening.Result, error)
}

// BatchEmbedder embeds texts for persisting the screened corpus.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds runner settings.
type Config struct {
	// SourceTypes are the bibliographic sources queried during
	// identification.
	SourceTypes []domain.SourceType

	// RunTimeout is the wall-clock ceiling for one review run.
	// 0 uses the default of 10 minutes.
	RunTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.RunTimeout == 0 {
		c.RunTimeout = defaultRunTimeout
	}
}

// Params collects the runner's dependencies.
type Params struct {
	Store     store.SessionStore
	Searcher  Searcher
	Filter    *filter.Filter
	Deduper   Deduper
	Screener  Screener
	Publisher events.Publisher
	Metrics   *observability.Metrics
	Logger    zerolog.Logger

	// Vectors and Embedder persist the included corpus to the embedding
	// cache after a successful run. Both may be nil to disable caching.
	Vectors  vectorstore.VectorStore
	Embedder BatchEmbedder
}

// Runner executes review runs end to end and records their progress.
type Runner struct {
	store     store.SessionStore
	searcher  Searcher
	filter    *filter.Filter
	deduper   Deduper
	screener  Screener
	publisher events.Publisher
	vectors   vectorstore.VectorStore
	embedder  BatchEmbedder
	metrics   *observability.Metrics
	logger    zerolog.Logger
	cfg       Config
}

// NewRunner creates a Runner. A nil Publisher disables progress events.
func NewRunner(params Params, cfg Config) *Runner {
	cfg.applyDefaults()
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &Runner{
		store:     params.Store,
		searcher:  params.Searcher,
		filter:    params.Filter,
		deduper:   params.Deduper,
		screener:  params.Screener,
		publisher: publisher,
		vectors:   params.Vectors,
		embedder:  params.Embedder,
		metrics:   params.Metrics,
		logger:    params.Logger,
		cfg:       cfg,
	}
}

// Run executes the full pipeline for an already created session. The
// session moves through searching, filtering, deduping and screening
// before it reaches a terminal status. On failure the session records
// the error and the partial funnel is lost; on success the result is
// persisted and the session is completed.
func (r *Runner) Run(ctx context.Context, req domain.ReviewRequest) (*domain.ReviewResult, error) {
	if strings.TrimSpace(req.Question) == "" && len(req.Terms) == 0 {
		return nil, domain.NewValidationError("question", "question or terms are required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	logger := r.logger.With().Str("review_id", req.ID.String()).Logger()
	start := time.Now()

	if r.metrics != nil {
		r.metrics.ReviewsStarted.Inc()
	}
	r.publish(ctx, logger, domain.EventTypeReviewStarted, req.ID, domain.ReviewStartedPayload{
		Question:    req.Question,
		TargetCount: req.TargetCount,
	})

	funnel := domain.Funnel{}

	// Identification.
	r.setStatus(ctx, logger, req.ID, domain.ReviewStatusSearching)
	searchResult, err := r.searcher.Search(ctx, buildSearchParams(req), r.cfg.SourceTypes)
	if err != nil {
		return nil, r.fail(ctx, logger, req.ID, fmt.Errorf("search stage: %w", err))
	}
	funnel.Identified = searchResult.Identified
	funnel.Merged = len(searchResult.Articles)
	funnel.PerSource = searchResult.PerSource
	funnel.SearchSeconds = searchResult.Elapsed.Seconds()
	r.observeStage(domain.StageSearch, searchResult.Elapsed, funnel.Identified-funnel.Merged)
	r.publishStage(ctx, logger, req.ID, domain.StageSearch, funnel.Merged, funnel.Identified-funnel.Merged, searchResult.Elapsed)
	logger.Info().
		Int("identified", funnel.Identified).
		Int("merged", funnel.Merged).
		Msg("identification completed")

	// Criteria filters.
	r.setStatus(ctx, logger, req.ID, domain.ReviewStatusFiltering)
	filterStart := time.Now()
	filterResult := r.filter.Apply(searchResult.Articles, req.Criteria)
	funnel.AfterFilters = len(filterResult.Kept)
	r.observeStage(domain.StageFilter, time.Since(filterStart), len(filterResult.Excluded))
	r.publishStage(ctx, logger, req.ID, domain.StageFilter, funnel.AfterFilters, len(filterResult.Excluded), time.Since(filterStart))

	// Deduplication.
	r.setStatus(ctx, logger, req.ID, domain.ReviewStatusDeduping)
	dedupStart := time.Now()
	dedupResult, err := r.deduper.Run(ctx, filterResult.Kept)
	if err != nil {
		return nil, r.fail(ctx, logger, req.ID, fmt.Errorf("dedup stage: %w", err))
	}
	funnel.AfterExactDedup = dedupResult.AfterExact
	funnel.AfterSemanticDedup = dedupResult.AfterSemantic
	r.observeStage(domain.StageDedup, time.Since(dedupStart), len(dedupResult.Removed))
	r.publishStage(ctx, logger, req.ID, domain.StageDedup, funnel.AfterSemanticDedup, len(dedupResult.Removed), time.Since(dedupStart))

	// Relevance screening.
	r.setStatus(ctx, logger, req.ID, domain.ReviewStatusScreening)
	screenStart := time.Now()
	screenResult, err := r.screener.Screen(ctx, dedupResult.Kept, screening.Query{
		Question: req.Question,
		Terms:    req.Terms,
	}, req.TargetCount)
	if err != nil {
		return nil, r.fail(ctx, logger, req.ID, fmt.Errorf("screening stage: %w", err))
	}
	screenElapsed := time.Since(screenStart)
	funnel.ScreenedIn = len(screenResult.Included)
	funnel.ScreenedOut = len(screenResult.Excluded)
	funnel.ScreenSeconds = screenElapsed.Seconds()
	funnel.TotalSeconds = time.Since(start).Seconds()
	r.observeStage(domain.StageScreening, screenElapsed, funnel.ScreenedOut)
	r.publishStage(ctx, logger, req.ID, domain.StageScreening, funnel.ScreenedIn, funnel.ScreenedOut, screenElapsed)
	if r.metrics != nil {
		r.metrics.ArticlesScreened.WithLabelValues("included").Add(float64(funnel.ScreenedIn))
		r.metrics.ArticlesScreened.WithLabelValues("excluded").Add(float64(funnel.ScreenedOut))
	}

	result := &domain.ReviewResult{
		ReviewID:    req.ID,
		Included:    screenResult.Included,
		Removed:     dedupResult.Removed,
		Excluded:    append(filterResult.Excluded, screenResult.Excluded...),
		Funnel:      funnel,
		QueryText:   screenResult.QueryText,
		CompletedAt: time.Now().UTC(),
	}

	if err := r.store.SaveResult(ctx, result); err != nil {
		return nil, r.fail(ctx, logger, req.ID, fmt.Errorf("save result: %w", err))
	}
	r.setStatus(ctx, logger, req.ID, domain.ReviewStatusCompleted)

	if r.metrics != nil {
		r.metrics.ReviewsCompleted.Inc()
		r.metrics.ReviewDuration.Observe(funnel.TotalSeconds)
	}
	r.publish(ctx, logger, domain.EventTypeReviewCompleted, req.ID, domain.ReviewCompletedPayload{Funnel: funnel})

	r.persistCorpus(ctx, logger, screenResult.Included)

	logger.Info().
		Int("included", funnel.ScreenedIn).
		Float64("total_seconds", funnel.TotalSeconds).
		Msg("review completed")
	return result, nil
}

// buildSearchParams maps a review request onto source query parameters.
// Pre-expanded terms take precedence; otherwise the question itself is
// the single query term and each source quotes it as a phrase.
func buildSearchParams(req domain.ReviewRequest) sources.SearchParams {
	params := sources.SearchParams{Terms: req.Terms}
	if len(params.Terms) == 0 {
		params.Terms = []string{strings.TrimSpace(req.Question)}
	}

	if req.Criteria.StartYear > 0 {
		from := time.Date(req.Criteria.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		params.DateFrom = &from
	}
	if req.Criteria.EndYear > 0 {
		to := time.Date(req.Criteria.EndYear, time.December, 31, 23, 59, 59, 0, time.UTC)
		params.DateTo = &to
	}
	return params
}

// fail records a failed run: the session is moved to failed with the
// error message, the failure event is published and the metrics updated.
func (r *Runner) fail(ctx context.Context, logger zerolog.Logger, id uuid.UUID, cause error) error {
	logger.Error().Err(cause).Msg("review failed")

	if r.metrics != nil {
		r.metrics.ReviewsFailed.Inc()
	}

	// The run context may already be cancelled or past its deadline;
	// persist the terminal status on a fresh context.
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.UpdateStatus(statusCtx, id, domain.ReviewStatusFailed, cause.Error()); err != nil {
		logger.Warn().Err(err).Msg("failed to record failed status")
	}
	r.publish(statusCtx, logger, domain.EventTypeReviewFailed, id, domain.ReviewFailedPayload{Error: cause.Error()})
	return cause
}

// setStatus advances the session status. A store failure is logged and
// does not interrupt the run.
func (r *Runner) setStatus(ctx context.Context, logger zerolog.Logger, id uuid.UUID, status domain.ReviewStatus) {
	if err := r.store.UpdateStatus(ctx, id, status, ""); err != nil {
		logger.Warn().Err(err).Str("status", string(status)).Msg("failed to update review status")
	}
}

// publish sends a progress event. Publishing is best effort.
func (r *Runner) publish(ctx context.Context, logger zerolog.Logger, eventType string, reviewID uuid.UUID, payload interface{}) {
	event, err := domain.NewProgressEvent(eventType, reviewID, payload)
	if err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to build progress event")
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish progress event")
	}
}

// publishStage sends a stage completion event.
func (r *Runner) publishStage(ctx context.Context, logger zerolog.Logger, reviewID uuid.UUID, stage string, surviving, removed int, elapsed time.Duration) {
	r.publish(ctx, logger, domain.EventTypeStageCompleted, reviewID, domain.StageCompletedPayload{
		Stage:     stage,
		Surviving: surviving,
		Removed:   removed,
		Seconds:   elapsed.Seconds(),
	})
}

// observeStage records stage duration and removal metrics.
func (r *Runner) observeStage(stage string, elapsed time.Duration, removed int) {
	if r.metrics == nil {
		return
	}
	r.metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if removed > 0 {
		r.metrics.ArticlesRemoved.WithLabelValues(stage).Add(float64(removed))
	}
}

// persistCorpus writes the included corpus to the embedding cache so
// later reviews can search previously screened articles. Best effort.
func (r *Runner) persistCorpus(ctx context.Context, logger zerolog.Logger, included []*domain.Article) {
	if r.vectors == nil || r.embedder == nil || len(included) == 0 {
		return
	}

	texts := make([]string, len(included))
	for i, article := range included {
		texts[i], _ = article.EmbeddingText(corpusEmbedCap)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(included) {
		logger.Warn().Err(err).Msg("failed to embed corpus for caching")
		return
	}

	points := make([]vectorstore.ArticlePoint, len(included))
	for i, article := range included {
		points[i] = vectorstore.ArticlePoint{
			ArticleID: article.ID,
			Embedding: vectors[i],
			Title:     article.Title,
			DOI:       article.DOI,
		}
	}
	if err := r.vectors.UpsertBatch(ctx, points); err != nil {
		logger.Warn().Err(err).Int("points", len(points)).Msg("failed to cache corpus embeddings")
		return
	}
	logger.Debug().Int("points", len(points)).Msg("cached corpus embeddings")
}
