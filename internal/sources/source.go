// Package sources provides interfaces and types for bibliographic source clients.
//
// Each bibliographic database (Semantic Scholar, PubMed, arXiv, OpenAlex)
// implements the Source interface, allowing the review pipeline to search
// multiple sources concurrently with a unified API.
//
// Example usage:
//
//	source := semanticscholar.New(cfg, httpClient)
//	params := sources.SearchParams{
//		Terms:      []string{"CRISPR", "gene editing"},
//		MaxResults: 100,
//	}
//	result, err := source.Search(ctx, params)
package sources

import (
	"context"
	"strings"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// SearchParams defines the parameters for searching bibliographic sources.
type SearchParams struct {
	// Terms are the search terms. Each source combines them using its own
	// query conventions (quoted phrases, boolean operators, field tags).
	Terms []string

	// BooleanQuery is an optional pre-built boolean expression. When set,
	// sources use it verbatim and never re-tokenize it; Terms are ignored
	// for query building.
	BooleanQuery string

	// DateFrom filters articles published on or after this date.
	// If nil, no lower date bound is applied.
	DateFrom *time.Time

	// DateTo filters articles published on or before this date.
	// If nil, no upper date bound is applied.
	DateTo *time.Time

	// MaxResults limits the number of articles returned in a single request.
	// Sources may have their own maximum limits that override this value.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	Offset int

	// OpenAccessOnly filters results to only include open access articles.
	OpenAccessOnly bool
}

// Query joins the search terms with a separator for sources whose query
// language is a plain string. A pre-built BooleanQuery takes precedence
// and is returned as-is.
func (p SearchParams) Query(sep string) string {
	if q := strings.TrimSpace(p.BooleanQuery); q != "" {
		return q
	}
	terms := make([]string, 0, len(p.Terms))
	for _, term := range p.Terms {
		term = strings.TrimSpace(term)
		if term != "" {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, sep)
}

// SearchResult contains the results from a source search operation.
type SearchResult struct {
	// Articles contains the articles returned by the search.
	// May be empty if no articles match the search criteria.
	Articles []*domain.Article

	// TotalResults is the total number of articles matching the query,
	// regardless of pagination limits. May be an estimate.
	TotalResults int

	// HasMore indicates whether additional results are available beyond
	// the current page.
	HasMore bool

	// NextOffset is the offset value to use for fetching the next page.
	// Only meaningful when HasMore is true.
	NextOffset int

	// Source identifies which source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search, including
	// network latency and response parsing.
	SearchDuration time.Duration
}

// Source defines the interface that all bibliographic source clients implement.
type Source interface {
	// Search queries the source for articles matching the given parameters.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Transform source-specific responses to domain.Article
	//   - Include appropriate error wrapping with source context
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this source.
	// Used for attribution, deduplication, and routing.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	Name() string

	// IsEnabled returns whether this source is currently enabled and
	// available for searches. A source may be disabled by configuration
	// or a missing API key.
	IsEnabled() bool
}
