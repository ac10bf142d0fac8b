// Package filter applies declarative inclusion criteria to merged article
// lists. Criteria compose as logical AND; each excluded article keeps an
// exclusion reason naming the first criterion it failed.
package filter

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/translate"
)

// Exclusion reason labels, one per criterion.
const (
	ReasonYearRange  = "outside year range"
	ReasonOpenAccess = "not open access"
	ReasonLanguage   = "language mismatch"
	ReasonJournal    = "journal not in allow-list"
)

// Stats counts exclusions per criterion for the PRISMA funnel.
type Stats struct {
	Input      int `json:"input"`
	Kept       int `json:"kept"`
	ByYear     int `json:"by_year"`
	ByAccess   int `json:"by_access"`
	ByLanguage int `json:"by_language"`
	ByJournal  int `json:"by_journal"`
}

// Result holds the outcome of one filter pass.
type Result struct {
	Kept     []*domain.Article
	Excluded []*domain.Article
	Stats    Stats
}

// Filter evaluates FilterCriteria against articles.
type Filter struct {
	logger zerolog.Logger
}

// New creates a Filter.
func New(logger zerolog.Logger) *Filter {
	return &Filter{logger: logger}
}

// Apply partitions articles into kept and excluded sets. A zero-value
// criteria keeps everything. Input order is preserved in both partitions
// and articles are annotated in place with their exclusion reason.
func (f *Filter) Apply(articles []*domain.Article, criteria domain.FilterCriteria) *Result {
	result := &Result{Stats: Stats{Input: len(articles)}}

	if criteria.IsZero() {
		result.Kept = articles
		result.Stats.Kept = len(articles)
		return result
	}

	journals := normalizeJournals(criteria.Journals)

	for _, article := range articles {
		reason := f.evaluate(article, criteria, journals, &result.Stats)
		if reason == "" {
			result.Kept = append(result.Kept, article)
			continue
		}
		article.ExclusionReason = reason
		result.Excluded = append(result.Excluded, article)
	}

	result.Stats.Kept = len(result.Kept)
	f.logger.Info().
		Int("input", result.Stats.Input).
		Int("kept", result.Stats.Kept).
		Int("by_year", result.Stats.ByYear).
		Int("by_access", result.Stats.ByAccess).
		Int("by_language", result.Stats.ByLanguage).
		Int("by_journal", result.Stats.ByJournal).
		Msg("filter stage completed")

	return result
}

// evaluate returns the reason for the first failing criterion, or "" when
// the article passes all of them.
func (f *Filter) evaluate(article *domain.Article, criteria domain.FilterCriteria, journals map[string]struct{}, stats *Stats) string {
	// A missing year counts as 0, so any start_year bound excludes it.
	if criteria.StartYear != 0 && article.Year < criteria.StartYear {
		stats.ByYear++
		return fmt.Sprintf("%s (%d < %d)", ReasonYearRange, article.Year, criteria.StartYear)
	}
	if criteria.EndYear != 0 && article.Year > criteria.EndYear {
		stats.ByYear++
		return fmt.Sprintf("%s (%d > %d)", ReasonYearRange, article.Year, criteria.EndYear)
	}

	if criteria.OpenAccess && !IsLikelyOpenAccess(article) {
		stats.ByAccess++
		return ReasonOpenAccess
	}

	if criteria.Language != "" && !matchesLanguage(article, criteria.Language) {
		stats.ByLanguage++
		return ReasonLanguage
	}

	if len(journals) > 0 {
		if _, ok := journals[strings.ToLower(strings.TrimSpace(article.Journal))]; !ok {
			stats.ByJournal++
			return ReasonJournal
		}
	}

	return ""
}

// openAccessURLIndicators mark hosts and paths that serve freely readable
// copies. Matching any indicator in the URL or PDF URL counts as open access.
var openAccessURLIndicators = []string{
	"arxiv",
	"plos",
	"biorxiv",
	"medrxiv",
	"ssrn",
	"researchgate",
	"ncbi.nlm.nih.gov/pmc",
	"doaj.org",
	"open",
}

// openAccessDOIPrefixes cover publishers whose entire registrant output is
// open access (PLOS, Frontiers, BMC, Nature Communications family, eLife).
var openAccessDOIPrefixes = []string{
	"10.1371",
	"10.3389",
	"10.1186",
	"10.1038",
	"10.7554",
}

// IsLikelyOpenAccess reports whether the article is explicitly flagged open
// access or matches URL/DOI heuristics for open-access publishers. Sources
// rarely flag access reliably, so the heuristics keep recall reasonable.
func IsLikelyOpenAccess(article *domain.Article) bool {
	if article.OpenAccess {
		return true
	}
	if article.PDFURL != "" {
		return true
	}

	url := strings.ToLower(article.URL)
	for _, indicator := range openAccessURLIndicators {
		if strings.Contains(url, indicator) {
			return true
		}
	}

	doi := strings.ToLower(strings.TrimSpace(article.DOI))
	for _, prefix := range openAccessDOIPrefixes {
		if strings.HasPrefix(doi, prefix) {
			return true
		}
	}

	return false
}

// matchesLanguage detects the article language from abstract (or title when
// the abstract is empty) and compares it to the wanted ISO code. An
// undetectable language never matches a requested one, so such articles
// are excluded when the language filter is active.
func matchesLanguage(article *domain.Article, want string) bool {
	text := article.Abstract
	if text == "" {
		text = article.Title
	}
	detected := translate.DetectLanguage(text)
	return detected == strings.ToLower(strings.TrimSpace(want))
}

func normalizeJournals(journals []string) map[string]struct{} {
	if len(journals) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(journals))
	for _, j := range journals {
		j = strings.ToLower(strings.TrimSpace(j))
		if j != "" {
			set[j] = struct{}{}
		}
	}
	return set
}
