package pdf

import (
	"bytes"
	"fmt"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// ExtractorConfig holds text extraction limits.
type ExtractorConfig struct {
	// MaxPages is the maximum number of pages to extract. Default: 40.
	MaxPages int
	// MaxChars is the maximum number of characters of extracted text. Default: 30000.
	MaxChars int
}

// Extractor extracts plain text from PDF bytes.
type Extractor struct {
	maxPages int
	maxChars int
}

// NewExtractor creates an Extractor with the given configuration.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 40
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = 30000
	}
	return &Extractor{
		maxPages: cfg.MaxPages,
		maxChars: cfg.MaxChars,
	}
}

// Extract parses the PDF content and returns its plain text, truncated to
// the configured page and character limits. Malformed PDFs return an error
// wrapping domain.ErrPDFExtraction; callers are expected to fall back to
// abstract-level text.
func (e *Extractor) Extract(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("%w: empty content", domain.ErrPDFExtraction)
	}

	reader, err := pdfreader.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrPDFExtraction, err)
	}

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return "", fmt.Errorf("%w: document has no pages", domain.ErrPDFExtraction)
	}
	pages := totalPages
	if pages > e.maxPages {
		pages = e.maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unparseable pages instead of failing the whole document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() >= e.maxChars {
			break
		}
	}

	result := normalizeText(sb.String())
	if result == "" {
		return "", fmt.Errorf("%w: no extractable text", domain.ErrPDFExtraction)
	}
	if len(result) > e.maxChars {
		result = truncateUTF8(result, e.maxChars)
	}
	return result, nil
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateUTF8 cuts s to at most n bytes without splitting a multi-byte rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
