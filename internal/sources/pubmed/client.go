package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 100

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Email is the contact email NCBI asks heavy users to send.
	Email string

	// Timeout is the request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the sources.Source interface for PubMed.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements Source.
var _ sources.Source = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Helixir-SystematicReview/1.0 (mailto:support@helixir.io)",
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries PubMed for articles matching the given parameters.
// It performs a two-step search:
//  1. esearch.fcgi retrieves PMIDs matching the query
//  2. efetch.fcgi retrieves full article metadata for the PMIDs
//
// An AND-combined term that matches nothing is retried once with the terms
// OR-combined, trading precision for recall rather than returning nothing.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("pubmed source is disabled")
	}

	startTime := time.Now()

	term := strings.TrimSpace(params.BooleanQuery)
	if term == "" {
		term = buildTerm(params.Terms, "AND")
	}

	searchResult, err := c.esearch(ctx, term, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// Recall fallback: a strict AND query that matches nothing is retried as
	// OR. Skipped for pre-built boolean queries, which are used verbatim.
	if len(searchResult.IDList.IDs) == 0 && params.BooleanQuery == "" && len(params.Terms) > 1 {
		searchResult, err = c.esearch(ctx, buildTerm(params.Terms, "OR"), params)
		if err != nil {
			return nil, fmt.Errorf("esearch fallback failed: %w", err)
		}
	}

	if len(searchResult.IDList.IDs) == 0 {
		return &sources.SearchResult{
			Articles:       []*domain.Article{},
			TotalResults:   searchResult.Count,
			HasMore:        false,
			NextOffset:     params.Offset,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	articleSet, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	articles := make([]*domain.Article, 0, len(articleSet.Articles))
	for _, record := range articleSet.Articles {
		articles = append(articles, c.recordToArticle(record))
	}

	nextOffset := params.Offset + len(articles)

	return &sources.SearchResult{
		Articles:       articles,
		TotalResults:   searchResult.Count,
		HasMore:        nextOffset < searchResult.Count,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildTerm combines search terms into an E-utilities query string.
// Multi-word terms are quoted so they search as phrases.
func buildTerm(terms []string, operator string) string {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.Contains(term, " ") {
			term = `"` + term + `"`
		}
		quoted = append(quoted, term)
	}
	return strings.Join(quoted, " "+operator+" ")
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, term string, params sources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", term)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	q.Set("retmax", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	if params.DateFrom != nil || params.DateTo != nil {
		q.Set("datetype", "pdat")

		if params.DateFrom != nil {
			q.Set("mindate", params.DateFrom.Format("2006/01/02"))
		}
		if params.DateTo != nil {
			q.Set("maxdate", params.DateTo.Format("2006/01/02"))
		}
	}

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// recordToArticle converts a PubmedArticle to a domain.Article.
func (c *Client) recordToArticle(record PubmedArticle) *domain.Article {
	citation := record.MedlineCitation
	pubmedData := record.PubmedData

	article := domain.NewArticle(domain.SourceTypePubMed)
	article.Title = strings.TrimSpace(citation.Article.ArticleTitle)
	article.DOI = extractDOI(citation.Article, pubmedData)
	article.Abstract = extractAbstract(citation.Article.Abstract)
	article.Authors = extractAuthors(citation.Article.AuthorList)
	article.Year = extractYear(citation.Article)

	article.Journal = citation.Article.Journal.Title
	if article.Journal == "" {
		article.Journal = citation.Article.Journal.ISOAbbreviation
	}

	if pmid := citation.PMID.Value; pmid != "" {
		article.URL = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}

	// PMC articles have retrievable full text.
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "pmc" && aid.Value != "" {
			article.PDFURL = "https://www.ncbi.nlm.nih.gov/pmc/articles/" + aid.Value + "/pdf/"
			article.OpenAccess = true
			break
		}
	}

	return article
}

// extractDOI extracts the DOI from article metadata.
// It checks ELocationID first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}

	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}

	return ""
}

// extractYear extracts the publication year from the article.
// Uses ArticleDate if available, otherwise the journal issue PubDate.
func extractYear(article Article) int {
	for _, ad := range article.ArticleDate {
		if year, err := strconv.Atoi(ad.Year); err == nil && year > 0 {
			return year
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	if pubDate.Year != "" {
		if year, err := strconv.Atoi(pubDate.Year); err == nil {
			return year
		}
	}

	// MedlineDate can be "2020 Jan-Feb", "2020 Spring", "2020-2021", etc.
	if pubDate.MedlineDate != "" {
		parts := strings.Fields(pubDate.MedlineDate)
		if len(parts) > 0 {
			yearStr := strings.Split(parts[0], "-")[0]
			if year, err := strconv.Atoi(yearStr); err == nil {
				return year
			}
		}
	}

	return 0
}

// extractAbstract concatenates multiple abstract sections into a single string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to display names.
func extractAuthors(authorList *AuthorList) []string {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}

		if name != "" {
			authors = append(authors, name)
		}
	}

	return authors
}
