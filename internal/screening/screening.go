// Package screening ranks deduplicated articles against the research
// question by embedding similarity and selects the final candidate set
// with a link-priority policy.
package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/embedding"
	"github.com/helixir/systematic-review-service/internal/translate"
)

// Query is the screening input: either a free-text research question or a
// pre-expanded set of English terms.
type Query struct {
	Question string
	Terms    []string
}

// Config holds screening thresholds.
type Config struct {
	// Threshold is the minimum similarity for inclusion. Default: 0.70.
	Threshold float64

	// URLFloor is the relaxed similarity floor applied to articles with a
	// usable link. Default: 0.60.
	URLFloor float64

	// TargetCount is the desired size of the selected set. Default: 50.
	TargetCount int

	// FullTextCap bounds the full-text contribution to embedding text.
	// Default: 15000 characters.
	FullTextCap int

	// HighBand and MediumBand are the relevance band cutoffs.
	// Defaults: 0.85 and 0.75.
	HighBand   float64
	MediumBand float64
}

func (c *Config) applyDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.70
	}
	if c.URLFloor == 0 {
		c.URLFloor = 0.60
	}
	if c.TargetCount == 0 {
		c.TargetCount = 50
	}
	if c.FullTextCap == 0 {
		c.FullTextCap = 15000
	}
	if c.HighBand == 0 {
		c.HighBand = 0.85
	}
	if c.MediumBand == 0 {
		c.MediumBand = 0.75
	}
}

// Result is the screening outcome.
type Result struct {
	// Included is the selected set sorted descending by similarity.
	Included []*domain.Article

	// Excluded are the rejected articles, each with an ExclusionReason.
	Excluded []*domain.Article

	// QueryText is the English text that fed the query embedding.
	QueryText string

	// TextBasis counts articles by the field that fed their embedding.
	TextBasis map[string]int
}

// Screener embeds and ranks articles against a research question.
type Screener struct {
	embedder   dedupeEmbedder
	translator translate.Translator
	cfg        Config
	logger     zerolog.Logger
}

// dedupeEmbedder is the batch embedding surface the screener needs.
type dedupeEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewScreener creates a Screener. translator may be nil; non-English
// questions are then used untranslated.
func NewScreener(embedder dedupeEmbedder, translator translate.Translator, cfg Config, logger zerolog.Logger) *Screener {
	cfg.applyDefaults()
	return &Screener{
		embedder:   embedder,
		translator: translator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Screen ranks articles against the query and selects the final set.
// targetCount overrides the configured target when positive.
func (s *Screener) Screen(ctx context.Context, articles []*domain.Article, query Query, targetCount int) (*Result, error) {
	if targetCount <= 0 {
		targetCount = s.cfg.TargetCount
	}

	queryText, err := s.queryText(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &Result{
		QueryText: queryText,
		TextBasis: make(map[string]int),
	}
	if len(articles) == 0 {
		return result, nil
	}

	// One batch call covers the query and every article with usable text.
	texts := []string{queryText}
	embeddable := make([]*domain.Article, 0, len(articles))
	var noContent []*domain.Article
	for _, article := range articles {
		text, basis := article.EmbeddingText(s.cfg.FullTextCap)
		result.TextBasis[basis]++
		if text == "" {
			article.Similarity = 0
			noContent = append(noContent, article)
			continue
		}
		texts = append(texts, text)
		embeddable = append(embeddable, article)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("screening embeddings: %w", err)
	}
	queryVec := vectors[0]

	for i, article := range embeddable {
		article.Similarity = embedding.ClampUnit(embedding.Cosine(queryVec, vectors[i+1]))
	}

	included, excluded := Select(embeddable, targetCount, s.cfg.Threshold, s.cfg.URLFloor)

	for _, article := range included {
		article.Relevance = s.band(article.Similarity)
	}
	for _, article := range excluded {
		article.Relevance = domain.RelevanceExcluded
		if article.Similarity >= s.cfg.Threshold {
			// Scored well enough but lost its slot to the selection policy.
			article.ExclusionReason = fmt.Sprintf("similarity %.2f, target count %d reached", article.Similarity, targetCount)
		} else {
			article.ExclusionReason = fmt.Sprintf("similarity %.2f below threshold %.2f", article.Similarity, s.cfg.Threshold)
		}
	}
	for _, article := range noContent {
		article.Relevance = domain.RelevanceExcluded
		article.ExclusionReason = "no content to screen"
	}

	result.Included = included
	result.Excluded = append(excluded, noContent...)

	s.logger.Info().
		Int("input", len(articles)).
		Int("included", len(result.Included)).
		Int("excluded", len(result.Excluded)).
		Str("query_text", queryText).
		Msg("screening completed")

	return result, nil
}

// queryText resolves the English query text: joined terms when provided,
// else the question translated to English when it is not already English.
// Translation failure falls back to the original question.
func (s *Screener) queryText(ctx context.Context, query Query) (string, error) {
	if len(query.Terms) > 0 {
		return strings.Join(query.Terms, " "), nil
	}

	question := strings.TrimSpace(query.Question)
	if question == "" {
		return "", fmt.Errorf("%w: empty screening query", domain.ErrInvalidInput)
	}

	if s.translator == nil || translate.IsEnglish(question) {
		return question, nil
	}

	translated, err := s.translator.Translate(ctx, question, "EN")
	if err != nil {
		s.logger.Warn().Err(err).Msg("question translation failed, using original text")
		return question, nil
	}
	return translated, nil
}

func (s *Screener) band(similarity float64) domain.Relevance {
	switch {
	case similarity >= s.cfg.HighBand:
		return domain.RelevanceHigh
	case similarity >= s.cfg.MediumBand:
		return domain.RelevanceMedium
	default:
		return domain.RelevanceLow
	}
}
