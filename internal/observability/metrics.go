package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the review pipeline.
type Metrics struct {
	// Source search metrics.
	SearchesStarted   *prometheus.CounterVec
	SearchesCompleted *prometheus.CounterVec
	SearchesFailed    *prometheus.CounterVec
	SearchDuration    *prometheus.HistogramVec
	ArticlesRetrieved *prometheus.CounterVec

	// Pipeline stage metrics.
	StageDuration    *prometheus.HistogramVec
	ArticlesRemoved  *prometheus.CounterVec
	ArticlesScreened *prometheus.CounterVec

	// Review session metrics.
	ReviewsStarted   prometheus.Counter
	ReviewsCompleted prometheus.Counter
	ReviewsFailed    prometheus.Counter
	ReviewDuration   prometheus.Histogram

	// External API metrics.
	EmbeddingCalls    *prometheus.CounterVec
	TranslationCalls  *prometheus.CounterVec
	PDFDownloads      *prometheus.CounterVec
	PDFExtractedChars prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SearchesStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_searches_started_total",
				Help:      "Total number of source searches started",
			},
			[]string{"source"},
		),
		SearchesCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_searches_completed_total",
				Help:      "Total number of source searches completed successfully",
			},
			[]string{"source"},
		),
		SearchesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_searches_failed_total",
				Help:      "Total number of source searches that failed",
			},
			[]string{"source"},
		),
		SearchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_search_duration_seconds",
				Help:      "Duration of source searches in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"source"},
		),
		ArticlesRetrieved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_retrieved_total",
				Help:      "Total number of articles retrieved per source",
			},
			[]string{"source"},
		),
		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
			},
			[]string{"stage"},
		),
		ArticlesRemoved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_removed_total",
				Help:      "Total number of articles removed per pipeline stage",
			},
			[]string{"stage"},
		),
		ArticlesScreened: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_screened_total",
				Help:      "Total number of articles screened by outcome",
			},
			[]string{"outcome"},
		),
		ReviewsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_started_total",
				Help:      "Total number of review sessions started",
			},
		),
		ReviewsCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_completed_total",
				Help:      "Total number of review sessions completed",
			},
		),
		ReviewsFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_failed_total",
				Help:      "Total number of review sessions that failed",
			},
		),
		ReviewDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "review_duration_seconds",
				Help:      "End to end duration of review sessions in seconds",
				Buckets:   []float64{10, 30, 60, 180, 300, 600, 1200},
			},
		),
		EmbeddingCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_calls_total",
				Help:      "Total number of embedding API calls by status",
			},
			[]string{"status"},
		),
		TranslationCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translation_calls_total",
				Help:      "Total number of translation API calls by status",
			},
			[]string{"status"},
		),
		PDFDownloads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pdf_downloads_total",
				Help:      "Total number of PDF download attempts by status",
			},
			[]string{"status"},
		),
		PDFExtractedChars: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pdf_extracted_chars",
				Help:      "Number of characters extracted from downloaded PDFs",
				Buckets:   []float64{0, 1000, 5000, 10000, 20000, 30000},
			},
		),
	}
}
