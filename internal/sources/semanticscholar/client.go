package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,abstract,year,venue,journal,authors,url,isOpenAccess,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum number of results to return per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// Client implements the sources.Source interface for Semantic Scholar.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
}

// Compile-time check that Client implements sources.Source.
var _ sources.Source = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one is created from the configuration settings.
func NewClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Semantic Scholar for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	start := time.Now()

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

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := c.convertToArticles(searchResp.Data)

	return &sources.SearchResult{
		Articles:       articles,
		TotalResults:   searchResp.Total,
		HasMore:        searchResp.Next > 0,
		NextOffset:     searchResp.Next,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", params.Query(" "))
	q.Set("fields", paperFields)

	limit := params.MaxResults
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}
	q.Set("limit", strconv.Itoa(limit))

	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	if params.OpenAccessOnly {
		q.Set("openAccessPdf", "")
	}

	// The API only supports year-based date filtering.
	if params.DateFrom != nil {
		q.Set("year", fmt.Sprintf("%d-", params.DateFrom.Year()))
	}
	if params.DateTo != nil {
		if existingYear := q.Get("year"); existingYear != "" {
			q.Set("year", fmt.Sprintf("%s%d", existingYear, params.DateTo.Year()))
		} else {
			q.Set("year", fmt.Sprintf("-%d", params.DateTo.Year()))
		}
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertToArticles converts a slice of API paper results to domain articles.
func (c *Client) convertToArticles(results []PaperResult) []*domain.Article {
	articles := make([]*domain.Article, 0, len(results))
	for _, result := range results {
		articles = append(articles, c.convertToArticle(result))
	}
	return articles
}

// convertToArticle converts a single API paper result to a domain article.
func (c *Client) convertToArticle(result PaperResult) *domain.Article {
	article := domain.NewArticle(domain.SourceTypeSemanticScholar)
	article.Title = result.Title
	article.Abstract = result.Abstract
	article.Year = result.Year
	article.URL = result.URL
	article.OpenAccess = result.IsOpenAccess

	if result.Journal != nil && result.Journal.Name != "" {
		article.Journal = result.Journal.Name
	} else {
		article.Journal = result.Venue
	}

	if result.ExternalIDs != nil {
		article.DOI = result.ExternalIDs.DOI
	}

	if result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != "" {
		article.PDFURL = result.OpenAccessPDF.URL
	}

	article.Authors = make([]string, 0, len(result.Authors))
	for _, a := range result.Authors {
		if a.Name != "" {
			article.Authors = append(article.Authors, a.Name)
		}
	}

	return article
}
