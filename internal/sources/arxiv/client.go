package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/sources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 50

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full entry URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or
// "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
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

// Client implements the sources.Source interface for arXiv.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements the Source interface.
var _ sources.Source = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Helixir-SystematicReview/1.0",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("arxiv source is disabled")
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

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := make([]*domain.Article, 0, len(feed.Entries))
	for i := range feed.Entries {
		if article := c.entryToArticle(&feed.Entries[i]); article != nil {
			articles = append(articles, article)
		}
	}

	nextOffset := params.Offset + len(articles)

	return &sources.SearchResult{
		Articles:       articles,
		TotalResults:   feed.TotalResults,
		HasMore:        nextOffset < feed.TotalResults,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}

	searchQuery := "all:" + params.Query(" ")

	if params.DateFrom != nil || params.DateTo != nil {
		if dateFilter := buildDateFilter(params.DateFrom, params.DateTo); dateFilter != "" {
			searchQuery = searchQuery + " AND " + dateFilter
		}
	}

	query.Set("search_query", searchQuery)

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}
	query.Set("max_results", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		query.Set("start", strconv.Itoa(params.Offset))
	}

	// Sort by submission date (newest first).
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildDateFilter constructs the arXiv date filter string.
func buildDateFilter(from, to *time.Time) string {
	var fromStr, toStr string

	if from != nil {
		fromStr = from.Format("20060102") + "0000"
	} else {
		fromStr = "*"
	}

	if to != nil {
		toStr = to.Format("20060102") + "2359"
	} else {
		toStr = "*"
	}

	return fmt.Sprintf("submittedDate:[%s TO %s]", fromStr, toStr)
}

// entryToArticle converts an arXiv Atom entry to a domain Article.
func (c *Client) entryToArticle(entry *Entry) *domain.Article {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	article := domain.NewArticle(domain.SourceTypeArXiv)

	// arXiv titles and abstracts include newlines and extra whitespace.
	article.Title = normalizeWhitespace(entry.Title)
	article.Abstract = normalizeWhitespace(entry.Summary)
	article.DOI = strings.TrimSpace(entry.DOI)
	article.Journal = strings.TrimSpace(entry.JournalRef)
	article.URL = entry.ID
	article.OpenAccess = true // arXiv papers are always open access

	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			article.Year = t.Year()
		}
	}

	article.Authors = make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			article.Authors = append(article.Authors, name)
		}
	}

	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			article.PDFURL = link.Href
			break
		}
	}
	if article.PDFURL == "" {
		article.PDFURL = "https://arxiv.org/pdf/" + arxivID
	}

	return article
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" yields "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
