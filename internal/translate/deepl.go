// Package translate provides question translation for cross-language
// screening. Research questions written in other languages are translated to
// English before being embedded, because the embedding models score
// same-language pairs more reliably.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
)

const defaultDeepLBaseURL = "https://api-free.deepl.com/v2/translate"

// Translator translates text into a target language.
type Translator interface {
	// Translate returns the text translated into the target language
	// (an ISO 639-1 code such as "EN").
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// deepLResponse represents the DeepL API response body.
type deepLResponse struct {
	Translations []deepLTranslation `json:"translations"`
}

// deepLTranslation is a single translated segment.
type deepLTranslation struct {
	DetectedSourceLanguage string `json:"detected_source_language"`
	Text                   string `json:"text"`
}

// DeepLClient implements Translator using the DeepL REST API.
type DeepLClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

var _ Translator = (*DeepLClient)(nil)

// NewDeepLClient creates a DeepL translation client.
func NewDeepLClient(apiKey, baseURL string, timeout time.Duration) *DeepLClient {
	if baseURL == "" {
		baseURL = defaultDeepLBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &DeepLClient{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// NewDeepLClientWithHTTPClient creates a client with a custom HTTP client,
// for testing.
func NewDeepLClientWithHTTPClient(apiKey, baseURL string, client *http.Client) *DeepLClient {
	c := NewDeepLClient(apiKey, baseURL, 0)
	c.httpClient = client
	return c
}

// Translate translates text into the target language via DeepL.
func (c *DeepLClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.NewValidationError("text", "must not be empty")
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(targetLang))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl: request failed: %w: %v", domain.ErrTranslationFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("deepl: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewExternalAPIError("deepl", resp.StatusCode, string(body), domain.ErrTranslationFailure)
	}

	var deepLResp deepLResponse
	if err := json.Unmarshal(body, &deepLResp); err != nil {
		return "", fmt.Errorf("deepl: failed to unmarshal response: %w", err)
	}

	if len(deepLResp.Translations) == 0 || deepLResp.Translations[0].Text == "" {
		return "", fmt.Errorf("deepl: empty translation: %w", domain.ErrTranslationFailure)
	}

	return deepLResp.Translations[0].Text, nil
}

// NoopTranslator returns its input unchanged. Used when translation is
// disabled.
type NoopTranslator struct{}

var _ Translator = NoopTranslator{}

// Translate returns text unchanged.
func (NoopTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
