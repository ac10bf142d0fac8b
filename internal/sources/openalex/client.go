package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 25

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// sourceName is the human-readable name for this source.
	sourceName = "OpenAlex"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string

	// Email is the contact email for the polite pool.
	// Providing an email grants access to higher rate limits.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
	// Maximum is 200 per the OpenAlex API.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
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

// Client implements the sources.Source interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements the Source interface.
var _ sources.Source = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Helixir-SystematicReview/1.0 (mailto:" + cfg.Email + ")",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries OpenAlex for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("openalex source is disabled")
	}

	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := make([]*domain.Article, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if article := c.workToArticle(&searchResp.Results[i]); article != nil {
			articles = append(articles, article)
		}
	}

	nextOffset := params.Offset + len(articles)

	return &sources.SearchResult{
		Articles:       articles,
		TotalResults:   searchResp.Meta.Count,
		HasMore:        nextOffset < searchResp.Meta.Count,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}

	if q := params.Query(" "); q != "" {
		query.Set("search", q)
	}

	filters := buildFilters(params)
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > 200 {
		maxResults = 200 // OpenAlex API limit
	}
	query.Set("per_page", strconv.Itoa(maxResults))

	// OpenAlex uses page-based pagination (1-indexed).
	if params.Offset > 0 {
		page := (params.Offset / maxResults) + 1
		query.Set("page", strconv.Itoa(page))
	}

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the filter query string components.
func buildFilters(params sources.SearchParams) []string {
	var filters []string

	if params.DateFrom != nil {
		filters = append(filters, fmt.Sprintf("from_publication_date:%s", params.DateFrom.Format("2006-01-02")))
	}
	if params.DateTo != nil {
		filters = append(filters, fmt.Sprintf("to_publication_date:%s", params.DateTo.Format("2006-01-02")))
	}

	if params.OpenAccessOnly {
		filters = append(filters, "is_oa:true")
	}

	return filters
}

// workToArticle converts an OpenAlex Work to a domain Article.
func (c *Client) workToArticle(work *Work) *domain.Article {
	if work == nil {
		return nil
	}

	article := domain.NewArticle(domain.SourceTypeOpenAlex)

	// display_name is usually cleaner than title.
	article.Title = work.DisplayName
	if article.Title == "" {
		article.Title = work.Title
	}
	if article.Title == "" {
		return nil
	}

	article.DOI = normalizeDOI(work.DOI)
	if article.DOI == "" && work.IDs.DOI != "" {
		article.DOI = normalizeDOI(work.IDs.DOI)
	}

	article.Year = work.PublicationYear
	article.Abstract = reconstructAbstract(work.AbstractInvertedIndex)
	article.URL = work.ID

	article.Authors = make([]string, 0, len(work.Authorships))
	for _, authorship := range work.Authorships {
		if name := authorship.Author.DisplayName; name != "" {
			article.Authors = append(article.Authors, name)
		}
	}

	if work.PrimaryLocation != nil {
		if work.PrimaryLocation.Source != nil {
			article.Journal = work.PrimaryLocation.Source.DisplayName
		}
		if work.PrimaryLocation.LandingPage != "" {
			article.URL = work.PrimaryLocation.LandingPage
		}
	}

	article.OpenAccess = work.IsOpenAccess
	if work.OpenAccess != nil {
		article.OpenAccess = work.OpenAccess.IsOA
	}

	if work.OpenAccess != nil && work.OpenAccess.OAURL != "" {
		article.PDFURL = work.OpenAccess.OAURL
	} else if work.PrimaryLocation != nil && work.PrimaryLocation.PDFURL != "" {
		article.PDFURL = work.PrimaryLocation.PDFURL
	}

	return article
}

// normalizeDOI strips URL and scheme prefixes from DOIs and lowercases them.
func normalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}

// reconstructAbstract reconstructs the abstract text from OpenAlex's inverted
// index format, which maps words to their positions in the text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}

	// Guard against malicious payloads with excessive position entries.
	const maxAbstractWords = 100_000
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}
