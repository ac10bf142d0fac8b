package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "lowercases and strips punctuation",
			title: "COVID-19 Detection",
			want:  "covid19detection",
		},
		{
			name:  "spaces and hyphens normalize identically",
			title: "covid 19 detection",
			want:  "covid19detection",
		},
		{
			name:  "empty title",
			title: "",
			want:  "",
		},
		{
			name:  "punctuation only",
			title: "?!--...",
			want:  "",
		},
		{
			name:  "unicode letters survive",
			title: "Análisis de Redes",
			want:  "análisisderedes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFingerprint(tt.title))
		})
	}
}

func TestTitleFingerprint_Truncation(t *testing.T) {
	long := strings.Repeat("a", 500)
	fp := TitleFingerprint(long)
	assert.Len(t, fp, 120)
}

func TestTitleFingerprint_RoundTripEquality(t *testing.T) {
	// Different casing/punctuation of the same title must collide so the
	// exact dedup pass treats them as duplicates when years match.
	a := TitleFingerprint("Deep Learning: A Survey!")
	b := TitleFingerprint("deep learning a survey")
	assert.Equal(t, a, b)
}

func TestArticle_IdentityKey(t *testing.T) {
	tests := []struct {
		name    string
		article Article
		want    string
	}{
		{
			name:    "DOI wins when present",
			article: Article{Title: "Some Title", Year: 2021, DOI: "10.1038/nature12373"},
			want:    "doi:10.1038/nature12373",
		},
		{
			name:    "DOI is lowercased",
			article: Article{DOI: "10.1038/NATURE12373"},
			want:    "doi:10.1038/nature12373",
		},
		{
			name:    "trivially short DOI falls back to title",
			article: Article{Title: "A Study", Year: 2020, DOI: "10"},
			want:    "title:astudy:2020",
		},
		{
			name:    "no DOI uses fingerprint and year",
			article: Article{Title: "COVID-19 Detection", Year: 2022},
			want:    "title:covid19detection:2022",
		},
		{
			name:    "unknown year is part of the key",
			article: Article{Title: "COVID-19 Detection"},
			want:    "title:covid19detection:0",
		},
		{
			name:    "degenerate record has no key",
			article: Article{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.article.IdentityKey())
		})
	}
}

func TestArticle_EmbeddingText(t *testing.T) {
	t.Run("full text preferred over abstract", func(t *testing.T) {
		a := Article{Title: "T", Abstract: "abstract text", FullText: "full body"}
		text, basis := a.EmbeddingText(0)
		assert.Equal(t, "T full body", text)
		assert.Equal(t, TextBasisFullText, basis)
	})

	t.Run("full text is capped", func(t *testing.T) {
		a := Article{Title: "T", FullText: strings.Repeat("x", 100)}
		text, basis := a.EmbeddingText(10)
		assert.Equal(t, "T "+strings.Repeat("x", 10), text)
		assert.Equal(t, TextBasisFullText, basis)
	})

	t.Run("abstract when no full text", func(t *testing.T) {
		a := Article{Title: "T", Abstract: "abstract text"}
		text, basis := a.EmbeddingText(0)
		assert.Equal(t, "T abstract text", text)
		assert.Equal(t, TextBasisAbstract, basis)
	})

	t.Run("title only", func(t *testing.T) {
		a := Article{Title: "Only Title"}
		text, basis := a.EmbeddingText(0)
		assert.Equal(t, "Only Title", text)
		assert.Equal(t, TextBasisTitle, basis)
	})

	t.Run("no content", func(t *testing.T) {
		a := Article{}
		text, basis := a.EmbeddingText(0)
		assert.Empty(t, text)
		assert.Equal(t, TextBasisNone, basis)
	})

	t.Run("whitespace-only fields are degenerate", func(t *testing.T) {
		a := Article{Title: "   ", Abstract: "\n\t"}
		text, basis := a.EmbeddingText(0)
		assert.Empty(t, text)
		assert.Equal(t, TextBasisNone, basis)
	})
}

func TestArticle_HasUsableLink(t *testing.T) {
	tests := []struct {
		name    string
		article Article
		want    bool
	}{
		{
			name:    "pdf url counts",
			article: Article{PDFURL: "https://arxiv.org/pdf/2301.12345"},
			want:    true,
		},
		{
			name:    "landing url counts",
			article: Article{URL: "https://pubmed.ncbi.nlm.nih.gov/12345/"},
			want:    true,
		},
		{
			name:    "short junk does not count",
			article: Article{PDFURL: "n/a", URL: "-"},
			want:    false,
		},
		{
			name:    "empty record",
			article: Article{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.article.HasUsableLink())
		})
	}
}

func TestNewArticle(t *testing.T) {
	a := NewArticle(SourceTypeArXiv)
	require.NotNil(t, a)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", a.ID.String())
	assert.Equal(t, SourceTypeArXiv, a.Source)
}

func TestReviewStatus_IsTerminal(t *testing.T) {
	assert.True(t, ReviewStatusCompleted.IsTerminal())
	assert.True(t, ReviewStatusFailed.IsTerminal())
	assert.False(t, ReviewStatusPending.IsTerminal())
	assert.False(t, ReviewStatusScreening.IsTerminal())
}

func TestFilterCriteria_IsZero(t *testing.T) {
	assert.True(t, FilterCriteria{}.IsZero())
	assert.False(t, FilterCriteria{StartYear: 2020}.IsZero())
	assert.False(t, FilterCriteria{OpenAccess: true}.IsZero())
	assert.False(t, FilterCriteria{Journals: []string{"Nature"}}.IsZero())
}
