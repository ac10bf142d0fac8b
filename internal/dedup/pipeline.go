package dedup

import (
	"context"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// Result holds the outcome of the full deduplication pass.
type Result struct {
	// Kept are the surviving articles in input order.
	Kept []*domain.Article

	// Removed are the dropped duplicates, each carrying a RemovalReason.
	Removed []*domain.Article

	// AfterExact is the survivor count after the exact pass.
	AfterExact int

	// AfterSemantic is the survivor count after the semantic pass.
	AfterSemantic int
}

// Pipeline runs exact then semantic deduplication.
type Pipeline struct {
	semantic *SemanticChecker
}

// NewPipeline creates a Pipeline. semantic may be nil to run the exact
// pass only.
func NewPipeline(semantic *SemanticChecker) *Pipeline {
	return &Pipeline{semantic: semantic}
}

// Run applies both passes and returns the union of removals.
func (p *Pipeline) Run(ctx context.Context, articles []*domain.Article) (*Result, error) {
	kept, removed := Exact(articles)

	result := &Result{
		Removed:    removed,
		AfterExact: len(kept),
	}

	if p.semantic != nil {
		semKept, semRemoved, err := p.semantic.Check(ctx, kept)
		if err != nil {
			return nil, err
		}
		kept = semKept
		result.Removed = append(result.Removed, semRemoved...)
	}

	result.Kept = kept
	result.AfterSemantic = len(kept)
	return result, nil
}
