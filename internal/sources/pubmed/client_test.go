package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

const esearchXML = `<?xml version="1.0"?>
<eSearchResult>
  <Count>1</Count>
  <RetMax>1</RetMax>
  <RetStart>0</RetStart>
  <IdList>
    <Id>12345678</Id>
  </IdList>
</eSearchResult>`

const esearchEmptyXML = `<?xml version="1.0"?>
<eSearchResult>
  <Count>0</Count>
  <RetMax>0</RetMax>
  <RetStart>0</RetStart>
  <IdList></IdList>
</eSearchResult>`

const efetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">12345678</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <Volume>12</Volume>
            <PubDate><Year>2021</Year><Month>Mar</Month></PubDate>
          </JournalIssue>
          <Title>The Lancet</Title>
        </Journal>
        <ArticleTitle>Vaccine efficacy in adults</ArticleTitle>
        <ELocationID EIdType="doi" ValidYN="Y">10.1016/j.lancet.2021.01.001</ELocationID>
        <Abstract>
          <AbstractText Label="BACKGROUND">Vaccines work.</AbstractText>
          <AbstractText Label="RESULTS">Efficacy was high.</AbstractText>
        </Abstract>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y"><LastName>Smith</LastName><ForeName>Alice</ForeName></Author>
          <Author ValidYN="Y"><CollectiveName>Vaccine Study Group</CollectiveName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">12345678</ArticleId>
        <ArticleId IdType="pmc">PMC7654321</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

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
		switch r.URL.Path {
		case "/esearch.fcgi":
			assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
			assert.Equal(t, `"vaccine efficacy" AND adults`, r.URL.Query().Get("term"))
			w.Write([]byte(esearchXML))
		case "/efetch.fcgi":
			assert.Equal(t, "12345678", r.URL.Query().Get("id"))
			w.Write([]byte(efetchXML))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	result, err := client.Search(context.Background(), sources.SearchParams{
		Terms: []string{"vaccine efficacy", "adults"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalResults)
	assert.Equal(t, domain.SourceTypePubMed, result.Source)
	require.Len(t, result.Articles, 1)

	article := result.Articles[0]
	assert.Equal(t, "Vaccine efficacy in adults", article.Title)
	assert.Equal(t, "10.1016/j.lancet.2021.01.001", article.DOI)
	assert.Equal(t, 2021, article.Year)
	assert.Equal(t, "The Lancet", article.Journal)
	assert.Equal(t, "BACKGROUND: Vaccines work. RESULTS: Efficacy was high.", article.Abstract)
	assert.Equal(t, []string{"Alice Smith", "Vaccine Study Group"}, article.Authors)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/12345678/", article.URL)
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC7654321/pdf/", article.PDFURL)
	assert.True(t, article.OpenAccess)
}

func TestSearchFallsBackToOR(t *testing.T) {
	var terms []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			term := r.URL.Query().Get("term")
			terms = append(terms, term)
			if len(terms) == 1 {
				w.Write([]byte(esearchEmptyXML))
			} else {
				w.Write([]byte(esearchXML))
			}
		case "/efetch.fcgi":
			w.Write([]byte(efetchXML))
		}
	})

	result, err := client.Search(context.Background(), sources.SearchParams{
		Terms: []string{"rare-condition", "obscure-drug"},
	})
	require.NoError(t, err)

	require.Len(t, terms, 2)
	assert.Equal(t, "rare-condition AND obscure-drug", terms[0])
	assert.Equal(t, "rare-condition OR obscure-drug", terms[1])
	assert.Len(t, result.Articles, 1)
}

func TestSearchNoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(esearchEmptyXML))
	})

	result, err := client.Search(context.Background(), sources.SearchParams{
		Terms: []string{"nonexistent"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Articles)
	assert.False(t, result.HasMore)
}

func TestSearchDisabled(t *testing.T) {
	client := New(Config{Enabled: false})

	_, err := client.Search(context.Background(), sources.SearchParams{Terms: []string{"q"}})
	assert.Error(t, err)
}

func TestBuildTerm(t *testing.T) {
	tests := []struct {
		name     string
		terms    []string
		operator string
		want     string
	}{
		{name: "single term", terms: []string{"cancer"}, operator: "AND", want: "cancer"},
		{name: "phrase is quoted", terms: []string{"lung cancer", "smoking"}, operator: "AND", want: `"lung cancer" AND smoking`},
		{name: "or operator", terms: []string{"a", "b"}, operator: "OR", want: "a OR b"},
		{name: "blank terms dropped", terms: []string{" ", "b"}, operator: "AND", want: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildTerm(tt.terms, tt.operator))
		})
	}
}

func TestExtractYearMedlineDate(t *testing.T) {
	article := Article{
		Journal: Journal{
			JournalIssue: JournalIssue{
				PubDate: PubDate{MedlineDate: "2020 Jan-Feb"},
			},
		},
	}
	assert.Equal(t, 2020, extractYear(article))
}
