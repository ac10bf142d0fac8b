package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the lifecycle states of a review session.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusSearching ReviewStatus = "searching"
	ReviewStatusFiltering ReviewStatus = "filtering"
	ReviewStatusDeduping  ReviewStatus = "deduping"
	ReviewStatusScreening ReviewStatus = "screening"
	ReviewStatusCompleted ReviewStatus = "completed"
	ReviewStatusFailed    ReviewStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s ReviewStatus) IsTerminal() bool {
	switch s {
	case ReviewStatusCompleted, ReviewStatusFailed:
		return true
	default:
		return false
	}
}

// FilterCriteria is the declarative inclusion/exclusion configuration for
// the filter stage. Each criterion is independently optional (zero value =
// no filtering on that dimension); criteria compose as logical AND.
type FilterCriteria struct {
	// StartYear keeps only articles with Year >= StartYear when non-zero.
	StartYear int `json:"start_year,omitempty"`

	// EndYear keeps only articles with Year <= EndYear when non-zero.
	EndYear int `json:"end_year,omitempty"`

	// OpenAccess keeps only articles satisfying the open-access heuristic.
	OpenAccess bool `json:"open_access,omitempty"`

	// Language keeps only articles whose detected language matches the
	// given ISO 639-1 code (en, es, pt, fr).
	Language string `json:"language,omitempty"`

	// Journals keeps only articles whose journal is in the allow-list.
	Journals []string `json:"journals,omitempty"`
}

// IsZero returns true when no criterion is set.
func (c FilterCriteria) IsZero() bool {
	return c.StartYear == 0 && c.EndYear == 0 && !c.OpenAccess &&
		c.Language == "" && len(c.Journals) == 0
}

// ReviewRequest is the input for one systematic review run.
type ReviewRequest struct {
	// ID identifies the review session.
	ID uuid.UUID `json:"id"`

	// Question is the free-text research question.
	Question string `json:"question"`

	// Terms is an optional pre-expanded set of English search terms. When
	// present it is used both for source queries and as the screening
	// query text (skipping translation).
	Terms []string `json:"terms,omitempty"`

	// Criteria are the filter stage criteria.
	Criteria FilterCriteria `json:"criteria"`

	// TargetCount is the desired size of the screened result set.
	// 0 uses the configured default.
	TargetCount int `json:"target_count,omitempty"`

	// CreatedAt is when the review was requested.
	CreatedAt time.Time `json:"created_at"`
}

// Funnel holds PRISMA funnel counts for one review run. Every stage
// records how many articles survived so the user always sees an
// explanation, even for a zero-result review.
type Funnel struct {
	// Identified is the total number of records returned by all sources
	// before identity merge.
	Identified int `json:"identified"`

	// Merged is the count after identity merge across sources.
	Merged int `json:"merged"`

	// AfterFilters is the count surviving the filter stage.
	AfterFilters int `json:"after_filters"`

	// AfterExactDedup is the count surviving exact deduplication.
	AfterExactDedup int `json:"after_exact_dedup"`

	// AfterSemanticDedup is the count surviving semantic deduplication.
	AfterSemanticDedup int `json:"after_semantic_dedup"`

	// ScreenedIn is the size of the final selected set.
	ScreenedIn int `json:"screened_in"`

	// ScreenedOut is the number of articles excluded by screening.
	ScreenedOut int `json:"screened_out"`

	// PerSource is the number of merged records contributed by each source.
	PerSource map[SourceType]int `json:"per_source,omitempty"`

	// SearchSeconds is the wall-clock duration of the search phase.
	SearchSeconds float64 `json:"search_seconds"`

	// ScreenSeconds is the wall-clock duration of the screening phase.
	ScreenSeconds float64 `json:"screen_seconds"`

	// TotalSeconds is the wall-clock duration of the whole run.
	TotalSeconds float64 `json:"total_seconds"`
}

// ReviewResult is the outcome of one completed review run.
type ReviewResult struct {
	// ReviewID identifies the review session this result belongs to.
	ReviewID uuid.UUID `json:"review_id"`

	// Included is the ranked candidate list produced by screening, sorted
	// descending by similarity.
	Included []*Article `json:"included"`

	// Removed holds duplicates dropped by deduplication, each with a
	// RemovalReason.
	Removed []*Article `json:"removed"`

	// Excluded holds articles excluded by screening, each with an
	// ExclusionReason.
	Excluded []*Article `json:"excluded"`

	// Funnel is the PRISMA funnel for the run.
	Funnel Funnel `json:"funnel"`

	// QueryText is the English query text that fed the screening
	// embeddings (translated question or joined terms).
	QueryText string `json:"query_text"`

	// CompletedAt is when the run finished.
	CompletedAt time.Time `json:"completed_at"`
}

// ReviewSession is the stored state of a review.
type ReviewSession struct {
	Request   ReviewRequest `json:"request"`
	Status    ReviewStatus  `json:"status"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}
