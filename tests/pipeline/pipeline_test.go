// Package pipeline provides integration tests for the full review pipeline:
// search -> filter -> dedup -> screening, with real stage implementations
// and a deterministic embedder.
package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/dedup"
	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/events"
	"github.com/helixir/systematic-review-service/internal/filter"
	"github.com/helixir/systematic-review-service/internal/review"
	"github.com/helixir/systematic-review-service/internal/screening"
	"github.com/helixir/systematic-review-service/internal/search"
	"github.com/helixir/systematic-review-service/internal/sources"
	"github.com/helixir/systematic-review-service/internal/store"
)

// fakeSource serves canned articles for one source type.
type fakeSource struct {
	sourceType domain.SourceType
	articles   []*domain.Article
}

func (s *fakeSource) Search(_ context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
	return &sources.SearchResult{
		Articles:     s.articles,
		TotalResults: len(s.articles),
	}, nil
}

func (s *fakeSource) SourceType() domain.SourceType { return s.sourceType }

func (s *fakeSource) Name() string { return string(s.sourceType) }

func (s *fakeSource) IsEnabled() bool { return true }

// markerEmbedder returns fixed vectors keyed by marker substrings so
// similarities between query and articles are fully deterministic.
//
// Cosine geometry: both relevant vectors sit at 0.9 similarity to the
// query while only 0.62 from each other, so screening keeps both and
// semantic dedup does not collapse them.
type markerEmbedder struct{}

func (markerEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "machine learning"):
			vectors[i] = []float32{1, 0, 0} // query
		case strings.Contains(lower, "transformer"):
			vectors[i] = []float32{0.9, 0.436, 0}
		case strings.Contains(lower, "neural"):
			vectors[i] = []float32{0.9, -0.436, 0}
		case strings.Contains(lower, "quantum"):
			vectors[i] = []float32{0, 0, 1}
		default:
			vectors[i] = []float32{0, 1, 0}
		}
	}
	return vectors, nil
}

func testArticle(title, doi string, year int, source domain.SourceType) *domain.Article {
	return &domain.Article{
		ID:       uuid.New(),
		Title:    title,
		Abstract: "Study abstract for " + title,
		DOI:      doi,
		Year:     year,
		URL:      "https://example.org/" + uuid.NewString(),
		Source:   source,
	}
}

func TestPipelineIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	logger := zerolog.Nop()
	embedder := markerEmbedder{}

	// Corpus across two sources:
	//   - relevantA / crossDup share a DOI and collapse at identity merge
	//   - nearDupB has no DOI and is a semantic duplicate of relevantB
	//   - offTopic misses the screening threshold
	//   - ancient falls to the year filter
	relevantA := testArticle("Transformer models for clinical text", "10.1000/a", 2021, domain.SourceTypeSemanticScholar)
	relevantB := testArticle("Neural summarization of clinical notes", "10.1000/b", 2020, domain.SourceTypeSemanticScholar)
	nearDupB := testArticle("Neural summarisation of clinical documents", "", 2020, domain.SourceTypeSemanticScholar)
	offTopic := testArticle("Quantum chromodynamics on the lattice", "10.1000/c", 2022, domain.SourceTypeSemanticScholar)
	ancient := testArticle("Transformer winding insulation in power grids", "10.1000/old", 1990, domain.SourceTypeSemanticScholar)
	crossDup := testArticle("Transformer models for clinical text (preprint)", "10.1000/a", 2021, domain.SourceTypeArXiv)

	registry := sources.NewRegistry()
	registry.Register(&fakeSource{
		sourceType: domain.SourceTypeSemanticScholar,
		articles:   []*domain.Article{relevantA, relevantB, nearDupB, offTopic, ancient},
	})
	registry.Register(&fakeSource{
		sourceType: domain.SourceTypeArXiv,
		articles:   []*domain.Article{crossDup},
	})

	orchestrator := search.NewOrchestrator(registry, nil, nil, logger)
	semantic := dedup.NewSemanticChecker(embedder, dedup.SemanticConfig{Threshold: 0.92}, logger)
	screener := screening.NewScreener(embedder, nil, screening.Config{
		Threshold: 0.70,
		URLFloor:  0.60,
	}, logger)

	sessions := store.NewMemoryStore()
	runner := review.NewRunner(review.Params{
		Store:     sessions,
		Searcher:  orchestrator,
		Filter:    filter.New(logger),
		Deduper:   dedup.NewPipeline(semantic),
		Screener:  screener,
		Publisher: events.NewNopPublisher(),
		Logger:    logger,
	}, review.Config{
		SourceTypes: []domain.SourceType{domain.SourceTypeSemanticScholar, domain.SourceTypeArXiv},
	})

	req := domain.ReviewRequest{
		ID:        uuid.New(),
		Question:  "machine learning approaches to clinical narratives",
		Criteria:  domain.FilterCriteria{StartYear: 2000},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, sessions.CreateSession(context.Background(), req))

	result, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	// Funnel: 6 identified, 5 after identity merge, year filter drops one,
	// semantic dedup drops one, screening drops one.
	assert.Equal(t, 6, result.Funnel.Identified)
	assert.Equal(t, 5, result.Funnel.Merged)
	assert.Equal(t, 4, result.Funnel.AfterFilters)
	assert.Equal(t, 4, result.Funnel.AfterExactDedup)
	assert.Equal(t, 3, result.Funnel.AfterSemanticDedup)
	assert.Equal(t, 2, result.Funnel.ScreenedIn)
	assert.Equal(t, 1, result.Funnel.ScreenedOut)

	includedTitles := make([]string, 0, len(result.Included))
	for _, a := range result.Included {
		includedTitles = append(includedTitles, a.Title)
	}
	assert.ElementsMatch(t, []string{
		"Transformer models for clinical text",
		"Neural summarization of clinical notes",
	}, includedTitles)

	// Every removed or excluded article carries an explanation.
	for _, a := range result.Removed {
		assert.NotEmpty(t, a.Title)
	}
	require.Len(t, result.Excluded, 2)

	// The session store reflects the completed run.
	session, err := sessions.GetSession(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusCompleted, session.Status)

	stored, err := sessions.GetResult(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Funnel, stored.Funnel)
}

func TestPipelineIntegration_ScreeningSimilarityRecorded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	logger := zerolog.Nop()
	embedder := markerEmbedder{}

	registry := sources.NewRegistry()
	registry.Register(&fakeSource{
		sourceType: domain.SourceTypeOpenAlex,
		articles: []*domain.Article{
			testArticle("Transformer models for radiology reports", "10.2000/a", 2023, domain.SourceTypeOpenAlex),
		},
	})

	semantic := dedup.NewSemanticChecker(embedder, dedup.SemanticConfig{Threshold: 0.92}, logger)
	sessions := store.NewMemoryStore()
	runner := review.NewRunner(review.Params{
		Store:     sessions,
		Searcher:  search.NewOrchestrator(registry, nil, nil, logger),
		Filter:    filter.New(logger),
		Deduper:   dedup.NewPipeline(semantic),
		Screener:  screening.NewScreener(embedder, nil, screening.Config{Threshold: 0.70}, logger),
		Publisher: events.NewNopPublisher(),
		Logger:    logger,
	}, review.Config{
		SourceTypes: []domain.SourceType{domain.SourceTypeOpenAlex},
	})

	req := domain.ReviewRequest{
		ID:        uuid.New(),
		Question:  "machine learning for radiology",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, sessions.CreateSession(context.Background(), req))

	result, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Included, 1)

	// Screening annotates survivors with their similarity and band.
	assert.InDelta(t, 0.9, result.Included[0].Similarity, 0.01)
	assert.NotEmpty(t, result.Included[0].Relevance)
}
