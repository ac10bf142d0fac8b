package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/pdf"
)

type stubDownloader struct {
	calls   atomic.Int64
	content []byte
	err     error
}

func (d *stubDownloader) Download(_ context.Context, _ string) (*pdf.DownloadResult, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return &pdf.DownloadResult{Content: d.content, SizeBytes: int64(len(d.content))}, nil
}

type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) Extract(_ []byte) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

func withPDF(title, pdfURL string) *domain.Article {
	a := domain.NewArticle(domain.SourceTypeArXiv)
	a.Title = title
	a.PDFURL = pdfURL
	return a
}

func TestEnrichAll_PopulatesFullText(t *testing.T) {
	dl := &stubDownloader{content: []byte("%PDF-1.4")}
	ex := &stubExtractor{text: "Extracted full text of the paper."}
	e := NewEnricher(dl, ex, EnricherConfig{Workers: 2}, nil, zerolog.Nop())

	articles := []*domain.Article{
		withPDF("Paper A", "https://example.org/a.pdf"),
		withPDF("Paper B", "https://example.org/b.pdf"),
	}

	enriched := e.EnrichAll(context.Background(), articles)

	assert.Equal(t, 2, enriched)
	for _, a := range articles {
		assert.Equal(t, "Extracted full text of the paper.", a.FullText)
	}
}

func TestEnrichAll_SkipsArticlesWithoutPDFURL(t *testing.T) {
	dl := &stubDownloader{content: []byte("%PDF-1.4")}
	ex := &stubExtractor{text: "text"}
	e := NewEnricher(dl, ex, EnricherConfig{}, nil, zerolog.Nop())

	noPDF := domain.NewArticle(domain.SourceTypePubMed)
	noPDF.Title = "Abstract Only"

	enriched := e.EnrichAll(context.Background(), []*domain.Article{noPDF})

	assert.Equal(t, 0, enriched)
	assert.Equal(t, int64(0), dl.calls.Load())
	assert.Empty(t, noPDF.FullText)
}

func TestEnrichAll_SkipsAlreadyEnriched(t *testing.T) {
	dl := &stubDownloader{content: []byte("%PDF-1.4")}
	e := NewEnricher(dl, &stubExtractor{text: "new"}, EnricherConfig{}, nil, zerolog.Nop())

	a := withPDF("Done", "https://example.org/done.pdf")
	a.FullText = "already extracted"

	enriched := e.EnrichAll(context.Background(), []*domain.Article{a})

	assert.Equal(t, 0, enriched)
	assert.Equal(t, "already extracted", a.FullText)
}

func TestEnrichAll_DownloadFailureIsBestEffort(t *testing.T) {
	dl := &stubDownloader{err: errors.New("connection refused")}
	e := NewEnricher(dl, &stubExtractor{text: "text"}, EnricherConfig{}, nil, zerolog.Nop())

	a := withPDF("Unreachable", "https://example.org/gone.pdf")

	enriched := e.EnrichAll(context.Background(), []*domain.Article{a})

	assert.Equal(t, 0, enriched)
	assert.Empty(t, a.FullText)
}

func TestEnrichAll_ExtractionFailureIsBestEffort(t *testing.T) {
	dl := &stubDownloader{content: []byte("not really a pdf")}
	ex := &stubExtractor{err: domain.ErrPDFExtraction}
	e := NewEnricher(dl, ex, EnricherConfig{}, nil, zerolog.Nop())

	a := withPDF("Corrupt", "https://example.org/corrupt.pdf")

	enriched := e.EnrichAll(context.Background(), []*domain.Article{a})

	assert.Equal(t, 0, enriched)
	assert.Empty(t, a.FullText)
}

func TestEnrichAll_ContextCancellation(t *testing.T) {
	dl := &stubDownloader{content: []byte("%PDF-1.4")}
	e := NewEnricher(dl, &stubExtractor{text: "text"}, EnricherConfig{Workers: 1}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := make([]*domain.Article, 20)
	for i := range articles {
		articles[i] = withPDF("Paper", "https://example.org/p.pdf")
	}

	enriched := e.EnrichAll(ctx, articles)
	assert.Equal(t, 0, enriched)
}

func TestNewEnricher_DefaultWorkers(t *testing.T) {
	e := NewEnricher(&stubDownloader{}, &stubExtractor{}, EnricherConfig{}, nil, zerolog.Nop())
	require.NotNil(t, e)
	assert.Equal(t, 8, e.workers)
}
