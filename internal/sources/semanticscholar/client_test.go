package semanticscholar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		RateLimit: 100,
		BurstSize: 10,
	})

	return NewClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "CRISPR gene editing", r.URL.Query().Get("query"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(SearchResponse{
			Total: 2,
			Next:  0,
			Data: []PaperResult{
				{
					PaperID:  "abc123",
					Title:    "CRISPR applications in oncology",
					Abstract: "We review CRISPR.",
					Year:     2022,
					URL:      "https://www.semanticscholar.org/paper/abc123",
					Authors:  []Author{{Name: "Jane Doe"}, {Name: "John Roe"}},
					Journal:  &Journal{Name: "Nature Reviews"},
					ExternalIDs: &ExternalIDs{
						DOI: "10.1000/crispr.2022",
					},
					IsOpenAccess: true,
					OpenAccessPDF: &OpenAccessPDF{
						URL: "https://example.org/crispr.pdf",
					},
				},
				{
					PaperID: "def456",
					Title:   "Gene editing safety",
					Year:    2021,
					Venue:   "bioRxiv",
				},
			},
		})
	})

	result, err := client.Search(context.Background(), sources.SearchParams{
		Terms: []string{"CRISPR", "gene editing"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalResults)
	assert.False(t, result.HasMore)
	assert.Equal(t, domain.SourceTypeSemanticScholar, result.Source)
	require.Len(t, result.Articles, 2)

	first := result.Articles[0]
	assert.Equal(t, "CRISPR applications in oncology", first.Title)
	assert.Equal(t, "10.1000/crispr.2022", first.DOI)
	assert.Equal(t, 2022, first.Year)
	assert.Equal(t, "Nature Reviews", first.Journal)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, first.Authors)
	assert.Equal(t, "https://example.org/crispr.pdf", first.PDFURL)
	assert.True(t, first.OpenAccess)
	assert.Equal(t, domain.SourceTypeSemanticScholar, first.Source)

	second := result.Articles[1]
	assert.Empty(t, second.DOI)
	assert.Equal(t, "bioRxiv", second.Journal)
}

func TestSearchAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "forbidden"})
	})

	_, err := client.Search(context.Background(), sources.SearchParams{Terms: []string{"q"}})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "forbidden", apiErr.Message)
}

func TestBuildSearchURLYearFilter(t *testing.T) {
	client := NewClient(Config{Enabled: true}, nil)

	from := mustDate(t, "2019-01-01")
	to := mustDate(t, "2023-12-31")

	u, err := client.buildSearchURL(sources.SearchParams{
		Terms:    []string{"diabetes"},
		DateFrom: &from,
		DateTo:   &to,
	})
	require.NoError(t, err)
	assert.Contains(t, u, "year=2019-2023")
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}
