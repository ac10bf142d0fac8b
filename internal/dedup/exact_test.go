package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
)

func newArticle(title, doi string, year int) *domain.Article {
	a := domain.NewArticle(domain.SourceTypePubMed)
	a.Title = title
	a.DOI = doi
	a.Year = year
	return a
}

func TestExact_RemovesDOIDuplicates(t *testing.T) {
	first := newArticle("Original Record", "10.1234/abc", 2021)
	dup := newArticle("Same Work Different Title", "10.1234/ABC", 2021)

	kept, removed := Exact([]*domain.Article{first, dup})

	require.Len(t, kept, 1)
	assert.Same(t, first, kept[0])
	require.Len(t, removed, 1)
	assert.Equal(t, ReasonExactDOI, removed[0].RemovalReason)
}

func TestExact_RemovesTitleYearDuplicates(t *testing.T) {
	first := newArticle("COVID-19 Detection Methods", "", 2021)
	dup := newArticle("covid 19 detection methods", "", 2021)
	differentYear := newArticle("COVID-19 Detection Methods", "", 2022)

	kept, removed := Exact([]*domain.Article{first, dup, differentYear})

	require.Len(t, kept, 2)
	require.Len(t, removed, 1)
	assert.Equal(t, ReasonExactTitleYear, removed[0].RemovalReason)
}

func TestExact_FirstSeenWinsAndOrderIsStable(t *testing.T) {
	a := newArticle("Alpha", "10.1/a", 2020)
	b := newArticle("Beta", "10.1/b", 2020)
	aDup := newArticle("Alpha Again", "10.1/a", 2020)
	c := newArticle("Gamma", "10.1/c", 2020)

	kept, removed := Exact([]*domain.Article{a, b, aDup, c})

	require.Len(t, kept, 3)
	assert.Same(t, a, kept[0])
	assert.Same(t, b, kept[1])
	assert.Same(t, c, kept[2])
	require.Len(t, removed, 1)
	assert.Same(t, aDup, removed[0])
}

func TestExact_Idempotent(t *testing.T) {
	articles := []*domain.Article{
		newArticle("Alpha", "10.1/a", 2020),
		newArticle("Alpha Copy", "10.1/a", 2020),
		newArticle("Beta", "", 2021),
	}

	kept, _ := Exact(articles)
	keptAgain, removedAgain := Exact(kept)

	assert.Equal(t, kept, keptAgain)
	assert.Empty(t, removedAgain)
}

func TestExact_KeepsDegenerateRecords(t *testing.T) {
	// No DOI, no title: nothing to match on, both must survive.
	a := newArticle("", "", 0)
	b := newArticle("", "", 0)

	kept, removed := Exact([]*domain.Article{a, b})

	assert.Len(t, kept, 2)
	assert.Empty(t, removed)
}

func TestExact_EmptyInput(t *testing.T) {
	kept, removed := Exact(nil)
	assert.Empty(t, kept)
	assert.Empty(t, removed)
}
