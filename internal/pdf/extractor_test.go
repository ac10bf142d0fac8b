package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
)

func TestNewExtractor_Defaults(t *testing.T) {
	e := NewExtractor(ExtractorConfig{})

	assert.Equal(t, 40, e.maxPages)
	assert.Equal(t, 30000, e.maxChars)
}

func TestExtract_EmptyContent(t *testing.T) {
	e := NewExtractor(ExtractorConfig{})

	text, err := e.Extract(nil)
	require.Error(t, err)
	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrPDFExtraction)
}

func TestExtract_MalformedPDF(t *testing.T) {
	e := NewExtractor(ExtractorConfig{})

	text, err := e.Extract([]byte("this is not a PDF document at all"))
	require.Error(t, err)
	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrPDFExtraction)
}

func TestExtract_TruncatedHeader(t *testing.T) {
	e := NewExtractor(ExtractorConfig{})

	// Valid magic bytes but no body.
	text, err := e.Extract([]byte("%PDF-1.4"))
	require.Error(t, err)
	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrPDFExtraction)
}

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses spaces", "a   b    c", "a b c"},
		{"collapses newlines", "line one\n\nline two\n", "line one line two"},
		{"mixed whitespace", "a\t b\r\n  c", "a b c"},
		{"empty", "", ""},
		{"only whitespace", "  \n\t ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeText(tc.input))
		})
	}
}

func TestTruncateUTF8(t *testing.T) {
	t.Run("short string unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateUTF8("hello", 10))
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateUTF8("hello", 5))
	})

	t.Run("cuts at byte limit", func(t *testing.T) {
		assert.Equal(t, "hel", truncateUTF8("hello", 3))
	})

	t.Run("does not split multi-byte rune", func(t *testing.T) {
		s := "résumé"
		got := truncateUTF8(s, 2)
		// "é" is two bytes; cutting at 2 would split it.
		assert.Equal(t, "r", got)
		assert.True(t, strings.HasPrefix(s, got))
	})
}
