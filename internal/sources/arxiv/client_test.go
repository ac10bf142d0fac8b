package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>42</opensearch:totalResults>
  <opensearch:startIndex>0</opensearch:startIndex>
  <opensearch:itemsPerPage>2</opensearch:itemsPerPage>
  <entry>
    <id>http://arxiv.org/abs/2301.12345v2</id>
    <title>Deep learning for
      protein folding</title>
    <summary>  We present a model.
      It folds proteins.  </summary>
    <published>2023-01-15T18:30:00Z</published>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2301.12345v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.12345v2" rel="related" type="application/pdf"/>
    <arxiv:doi>10.48550/arXiv.2301.12345</arxiv:doi>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <title>Old preprint</title>
    <summary>Classic.</summary>
    <published>1999-01-04T00:00:00Z</published>
    <author><name>Emmy Noether</name></author>
  </entry>
</feed>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		RateLimit: 100,
		BurstSize: 10,
	})

	return NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "all:protein folding", r.URL.Query().Get("search_query"))
		assert.Equal(t, "submittedDate", r.URL.Query().Get("sortBy"))
		w.Write([]byte(atomFeed))
	})

	result, err := client.Search(context.Background(), sources.SearchParams{
		Terms: []string{"protein folding"},
	})
	require.NoError(t, err)

	assert.Equal(t, 42, result.TotalResults)
	assert.True(t, result.HasMore)
	assert.Equal(t, domain.SourceTypeArXiv, result.Source)
	require.Len(t, result.Articles, 2)

	first := result.Articles[0]
	assert.Equal(t, "Deep learning for protein folding", first.Title)
	assert.Equal(t, "We present a model. It folds proteins.", first.Abstract)
	assert.Equal(t, 2023, first.Year)
	assert.Equal(t, "10.48550/arXiv.2301.12345", first.DOI)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, first.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2301.12345v2", first.PDFURL)
	assert.Equal(t, "http://arxiv.org/abs/2301.12345v2", first.URL)
	assert.True(t, first.OpenAccess)

	// Entries without an explicit pdf link get a constructed one.
	second := result.Articles[1]
	assert.Equal(t, "https://arxiv.org/pdf/hep-th/9901001", second.PDFURL)
	assert.Equal(t, 1999, second.Year)
}

func TestSearchDisabled(t *testing.T) {
	client := New(Config{Enabled: false})

	_, err := client.Search(context.Background(), sources.SearchParams{Terms: []string{"q"}})
	assert.Error(t, err)
}

func TestSearchAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Search(context.Background(), sources.SearchParams{Terms: []string{"q"}})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestExtractArXivID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "modern id", url: "http://arxiv.org/abs/2301.12345v1", want: "2301.12345"},
		{name: "no version", url: "http://arxiv.org/abs/2301.12345", want: "2301.12345"},
		{name: "legacy id", url: "http://arxiv.org/abs/hep-th/9901001v1", want: "hep-th/9901001"},
		{name: "not arxiv", url: "https://example.com/paper", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArXivID(tt.url))
		})
	}
}

func TestBuildDateFilter(t *testing.T) {
	from := mustDate(t, "2020-06-01")
	to := mustDate(t, "2021-06-01")

	assert.Equal(t, "submittedDate:[202006010000 TO 202106012359]", buildDateFilter(&from, &to))
	assert.Equal(t, "submittedDate:[* TO 202106012359]", buildDateFilter(nil, &to))
	assert.Equal(t, "submittedDate:[202006010000 TO *]", buildDateFilter(&from, nil))
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}
