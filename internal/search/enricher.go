package search

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/observability"
	"github.com/helixir/systematic-review-service/internal/pdf"
)

// PDFDownloader downloads a PDF from a URL.
type PDFDownloader interface {
	Download(ctx context.Context, url string) (*pdf.DownloadResult, error)
}

// TextExtractor extracts plain text from PDF bytes.
type TextExtractor interface {
	Extract(content []byte) (string, error)
}

// EnricherConfig holds enrichment settings.
type EnricherConfig struct {
	// Workers is the size of the enrichment worker pool. Default: 8.
	Workers int
}

// Enricher populates Article.FullText from direct PDF links. Enrichment is
// strictly best effort: a failed download or extraction leaves the article
// at abstract-level text and never fails the run.
type Enricher struct {
	downloader PDFDownloader
	extractor  TextExtractor
	workers    int
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewEnricher creates an Enricher. metrics may be nil.
func NewEnricher(downloader PDFDownloader, extractor TextExtractor, cfg EnricherConfig, metrics *observability.Metrics, logger zerolog.Logger) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Enricher{
		downloader: downloader,
		extractor:  extractor,
		workers:    cfg.Workers,
		metrics:    metrics,
		logger:     logger,
	}
}

// EnrichAll attempts full-text enrichment for every article carrying a
// direct PDF link and returns the number successfully enriched. Articles
// are mutated in place. Enrichment stops early on context cancellation.
func (e *Enricher) EnrichAll(ctx context.Context, articles []*domain.Article) int {
	var enriched atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, article := range articles {
		if article.PDFURL == "" || article.FullText != "" {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if e.enrich(ctx, article) {
				enriched.Add(1)
			}
			return nil
		})
	}

	// Workers never return errors; Wait only propagates context cancellation.
	_ = g.Wait()

	return int(enriched.Load())
}

func (e *Enricher) enrich(ctx context.Context, article *domain.Article) bool {
	result, err := e.downloader.Download(ctx, article.PDFURL)
	if err != nil {
		if e.metrics != nil {
			e.metrics.PDFDownloads.WithLabelValues("failed").Inc()
		}
		e.logger.Debug().
			Str("article_id", article.ID.String()).
			Str("pdf_url", article.PDFURL).
			Err(err).
			Msg("pdf download failed")
		return false
	}
	if e.metrics != nil {
		e.metrics.PDFDownloads.WithLabelValues("success").Inc()
	}

	text, err := e.extractor.Extract(result.Content)
	if err != nil {
		e.logger.Debug().
			Str("article_id", article.ID.String()).
			Err(err).
			Msg("pdf text extraction failed")
		return false
	}

	article.FullText = text
	if e.metrics != nil {
		e.metrics.PDFExtractedChars.Observe(float64(len(text)))
	}
	return true
}
