package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// Default values for the OpenAI embedding provider.
const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "text-embedding-3-small"
	defaultOpenAIDimension = 1536
	defaultRetryDelay      = 2 * time.Second
	maxBatchSize           = 100
)

// embeddingRequest represents the OpenAI Embeddings API request body.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse represents the OpenAI Embeddings API response body.
type embeddingResponse struct {
	Data  []embeddingDatum `json:"data"`
	Usage embeddingUsage   `json:"usage"`
}

// embeddingDatum is a single embedding in a response.
type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// embeddingUsage contains token usage information.
type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIEmbedder implements Embedder using the OpenAI Embeddings API.
type OpenAIEmbedder struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	maxRetries int
	retryDelay time.Duration
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// OpenAIConfig holds the parameters needed to create an OpenAI embedder.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the embedding model identifier.
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
	// Dimension is the embedding vector dimension.
	Dimension int
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// MaxRetries is the number of retries for transient errors.
	MaxRetries int
}

// NewOpenAIEmbedder creates a new OpenAI embedding client.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = defaultOpenAIDimension
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OpenAIEmbedder{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimension:  dimension,
		maxRetries: maxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// NewOpenAIEmbedderWithHTTPClient creates an embedder with a custom HTTP
// client, for testing.
func NewOpenAIEmbedderWithHTTPClient(cfg OpenAIConfig, client *http.Client) *OpenAIEmbedder {
	e := NewOpenAIEmbedder(cfg)
	e.httpClient = client
	return e
}

// Dimension returns the embedding vector dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns the embedding vector for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding vector per input text, in order. Inputs
// larger than the API batch limit are split into sequential requests.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyInput
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embedWithRetry performs one batch request, retrying transient errors.
func (e *OpenAIEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		vectors, err := e.doRequest(ctx, texts)
		if err == nil {
			return vectors, nil
		}

		// Only retry on transient errors (5xx, 429).
		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("openai: exhausted %d retries: %w", e.maxRetries, lastErr)
}

// doRequest performs a single API request to the OpenAI Embeddings endpoint.
func (e *OpenAIEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := e.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseOpenAIAPIError(resp.StatusCode, respBody)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}

	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(texts), len(embResp.Data))
	}

	// The API may return embeddings out of order; place by index.
	vectors := make([][]float32, len(texts))
	for _, datum := range embResp.Data {
		if datum.Index < 0 || datum.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", datum.Index)
		}
		vectors[datum.Index] = datum.Embedding
	}
	for i, vector := range vectors {
		if len(vector) == 0 {
			return nil, fmt.Errorf("openai: missing embedding for input %d", i)
		}
	}

	return vectors, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *domain.ExternalAPIError {
	message := string(body)

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return domain.NewExternalAPIError("openai", statusCode, message, domain.ErrEmbeddingFailure)
}

// isTransientError reports whether an error is worth retrying.
func isTransientError(err error) bool {
	var apiErr *domain.ExternalAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
