package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/embedding"
)

// BatchEmbedder embeds a batch of texts into vectors, one per input.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SemanticConfig holds semantic deduplication settings.
type SemanticConfig struct {
	// Threshold is the cosine similarity at or above which two articles
	// are considered duplicates. Default: 0.92.
	Threshold float64

	// FullTextCap bounds the full-text contribution to embedding text.
	// Default: 15000 characters.
	FullTextCap int
}

func (c *SemanticConfig) applyDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.92
	}
	if c.FullTextCap == 0 {
		c.FullTextCap = 15000
	}
}

// SemanticChecker detects near-duplicate articles whose wording differs
// enough to defeat exact identity matching (preprint vs published versions,
// republished abstracts).
type SemanticChecker struct {
	embedder BatchEmbedder
	cfg      SemanticConfig
	logger   zerolog.Logger
}

// NewSemanticChecker creates a SemanticChecker.
func NewSemanticChecker(embedder BatchEmbedder, cfg SemanticConfig, logger zerolog.Logger) *SemanticChecker {
	cfg.applyDefaults()
	return &SemanticChecker{
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Check partitions articles into kept and removed sets. All embeddable
// texts are embedded in one batch call, then articles are accepted
// incrementally in input order: an article whose maximum cosine similarity
// against the already-accepted set reaches the threshold is removed as a
// duplicate of the first accepted match.
//
// The pass is conservative: articles without embeddable text are accepted
// without comparison, and an embedding failure accepts every article
// rather than risking the removal of non-duplicates.
func (s *SemanticChecker) Check(ctx context.Context, articles []*domain.Article) (kept, removed []*domain.Article, err error) {
	if len(articles) < 2 {
		return articles, nil, nil
	}

	// Map article position to its slot in the embedding batch. Articles
	// with no usable text get no slot.
	texts := make([]string, 0, len(articles))
	slot := make([]int, len(articles))
	for i, article := range articles {
		text, _ := article.EmbeddingText(s.cfg.FullTextCap)
		if text == "" {
			slot[i] = -1
			continue
		}
		slot[i] = len(texts)
		texts = append(texts, text)
	}

	if len(texts) < 2 {
		return articles, nil, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("semantic dedup embedding: %w", err)
		}
		s.logger.Warn().Err(err).Msg("semantic dedup embedding failed, accepting all articles")
		return articles, nil, nil
	}

	type accepted struct {
		article *domain.Article
		vector  []float32
	}
	var acceptedVecs []accepted

	for i, article := range articles {
		if slot[i] < 0 {
			kept = append(kept, article)
			continue
		}
		vector := vectors[slot[i]]

		var bestScore float64
		var bestMatch *domain.Article
		for _, acc := range acceptedVecs {
			if score := embedding.Cosine(vector, acc.vector); score > bestScore {
				bestScore = score
				bestMatch = acc.article
			}
		}

		if bestMatch != nil && bestScore >= s.cfg.Threshold {
			article.RemovalReason = fmt.Sprintf("%s (%.2f similarity to %q)", ReasonSemantic, bestScore, bestMatch.Title)
			removed = append(removed, article)
			continue
		}

		kept = append(kept, article)
		acceptedVecs = append(acceptedVecs, accepted{article: article, vector: vector})
	}

	return kept, removed, nil
}
