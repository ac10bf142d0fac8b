// Package search coordinates the identification phase of a review run:
// concurrent multi-source retrieval, deterministic identity merge and
// best-effort full-text enrichment.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/observability"
	"github.com/helixir/systematic-review-service/internal/sources"
)

// Result is the outcome of one identification run.
type Result struct {
	// Articles is the merged, deduplicated-by-identity article list in
	// deterministic order (sources sorted by name, source order within).
	Articles []*domain.Article

	// Identified is the total record count across sources before merging.
	Identified int

	// PerSource counts the merged records contributed by each source.
	PerSource map[domain.SourceType]int

	// SourceErrors holds the error for each source that failed. A partial
	// failure does not fail the run as long as one source returned records.
	SourceErrors map[domain.SourceType]error

	// Elapsed is the wall-clock duration of the run including enrichment.
	Elapsed time.Duration
}

// Orchestrator fans a query out to all enabled sources, merges the results
// by identity key and optionally enriches candidates with PDF full text.
type Orchestrator struct {
	registry *sources.Registry
	enricher *Enricher
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. enricher and metrics may be nil;
// enrichment and instrumentation are then skipped.
func NewOrchestrator(registry *sources.Registry, enricher *Enricher, metrics *observability.Metrics, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		enricher: enricher,
		metrics:  metrics,
		logger:   logger,
	}
}

// Search runs the identification phase. sourceTypes limits the fan-out; nil
// searches all enabled sources. Returns domain.ErrEmptyResultSet if no
// source produced any record, wrapping the last source error when every
// source failed outright.
func (o *Orchestrator) Search(ctx context.Context, params sources.SearchParams, sourceTypes []domain.SourceType) (*Result, error) {
	start := time.Now()

	results := o.registry.SearchSources(ctx, params, sourceTypes)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no sources available", domain.ErrEmptyResultSet)
	}

	// Goroutine completion order is nondeterministic; sort by source name
	// so the merge (and thus first-wins identity resolution) is stable.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})

	res := &Result{
		PerSource:    make(map[domain.SourceType]int),
		SourceErrors: make(map[domain.SourceType]error),
	}

	var lastErr error
	for _, sr := range results {
		if sr.Error != nil {
			// Typed so callers can tell a failed source apart from one
			// that simply returned nothing.
			srcErr := domain.NewSourceUnavailableError(sr.Source, sr.Error)
			lastErr = srcErr
			res.SourceErrors[sr.Source] = srcErr
			if o.metrics != nil {
				o.metrics.SearchesFailed.WithLabelValues(string(sr.Source)).Inc()
			}
			o.logger.Warn().
				Str("source", string(sr.Source)).
				Err(sr.Error).
				Msg("source search failed")
			continue
		}
		if o.metrics != nil {
			o.metrics.SearchesCompleted.WithLabelValues(string(sr.Source)).Inc()
			o.metrics.SearchDuration.WithLabelValues(string(sr.Source)).Observe(sr.Result.SearchDuration.Seconds())
			o.metrics.ArticlesRetrieved.WithLabelValues(string(sr.Source)).Add(float64(len(sr.Result.Articles)))
		}
		res.Identified += len(sr.Result.Articles)
		o.logger.Info().
			Str("source", string(sr.Source)).
			Int("articles", len(sr.Result.Articles)).
			Dur("duration", sr.Result.SearchDuration).
			Msg("source search completed")
	}

	res.Articles = mergeByIdentity(results, res.PerSource)

	if len(res.Articles) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: all sources failed: %w", domain.ErrEmptyResultSet, lastErr)
		}
		return nil, domain.ErrEmptyResultSet
	}

	if o.enricher != nil {
		enriched := o.enricher.EnrichAll(ctx, res.Articles)
		o.logger.Info().
			Int("candidates", len(res.Articles)).
			Int("enriched", enriched).
			Msg("full-text enrichment finished")
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// mergeByIdentity collapses records sharing an identity key, keeping the
// first occurrence in iteration order. Records without an identity key
// (no DOI, no title) carry nothing to merge on and are kept as-is.
func mergeByIdentity(results []sources.SourceResult, perSource map[domain.SourceType]int) []*domain.Article {
	seen := make(map[string]*domain.Article)
	var merged []*domain.Article

	for _, sr := range results {
		if sr.Error != nil {
			continue
		}
		for _, article := range sr.Result.Articles {
			if article == nil {
				continue
			}
			key := article.IdentityKey()
			if key != "" {
				if first, ok := seen[key]; ok {
					// Backfill fields the first-seen record is missing.
					backfill(first, article)
					continue
				}
				seen[key] = article
			}
			merged = append(merged, article)
			perSource[article.Source]++
		}
	}
	return merged
}

// backfill copies content fields from a later duplicate onto the kept
// record when the kept record lacks them. Identity and source attribution
// stay with the first-seen record.
func backfill(dst, src *domain.Article) {
	if dst.Abstract == "" && src.Abstract != "" {
		dst.Abstract = src.Abstract
	}
	if dst.PDFURL == "" && src.PDFURL != "" {
		dst.PDFURL = src.PDFURL
	}
	if dst.URL == "" && src.URL != "" {
		dst.URL = src.URL
	}
	if dst.DOI == "" && src.DOI != "" {
		dst.DOI = src.DOI
	}
	if dst.Year == 0 && src.Year != 0 {
		dst.Year = src.Year
	}
	if dst.Journal == "" && src.Journal != "" {
		dst.Journal = src.Journal
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if !dst.OpenAccess && src.OpenAccess {
		dst.OpenAccess = true
	}
}
