// Package domain provides domain models and business logic for the systematic review service.
package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SourceType represents the bibliographic source that provided article data.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeOpenAlex        SourceType = "openalex"
)

// Relevance is the qualitative relevance band assigned during screening.
type Relevance string

const (
	RelevanceHigh     Relevance = "high"
	RelevanceMedium   Relevance = "medium"
	RelevanceLow      Relevance = "low"
	RelevanceExcluded Relevance = "excluded"
)

// Text basis values describing which field fed an article's embedding.
const (
	TextBasisFullText = "fulltext"
	TextBasisAbstract = "abstract"
	TextBasisTitle    = "title"
	TextBasisNone     = "none"
)

const (
	// minDOILength is the minimum length for a DOI to be trusted as an
	// identity key. Shorter strings are treated as absent.
	minDOILength = 5

	// minUsableLinkLength is the minimum length for a URL to count as a
	// usable link in the screening selection policy.
	minUsableLinkLength = 11

	// fingerprintMaxLength caps normalized title fingerprints.
	fingerprintMaxLength = 120
)

// Article is the unit of data flowing through every pipeline stage.
// It is created by a source adapter, then annotated in place by the
// filter, deduplication and screening stages. An article either survives
// a stage or moves to that stage's reject list with a reason attached;
// it is never silently dropped after the initial identity merge.
type Article struct {
	// ID is a service-local identifier assigned when the record is created.
	ID uuid.UUID `json:"id"`

	// Title is required for identity and embedding text. Articles with an
	// empty title are degenerate and carry no identity.
	Title string `json:"title"`

	// Authors holds author display names in source order.
	Authors []string `json:"authors"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year"`

	// DOI is the primary exact-duplicate key when present.
	DOI string `json:"doi"`

	// Abstract may be empty.
	Abstract string `json:"abstract"`

	// FullText is populated by PDF enrichment. When present it supersedes
	// the abstract as the text basis for embeddings.
	FullText string `json:"full_text,omitempty"`

	// Journal may be empty.
	Journal string `json:"journal"`

	// URL is the landing page for the article.
	URL string `json:"url"`

	// PDFURL is a direct link to a retrievable PDF when the source exposes one.
	PDFURL string `json:"pdf_url"`

	// Source identifies which adapter produced the record.
	Source SourceType `json:"source"`

	// OpenAccess is set when the source explicitly flags the article as
	// open access. The filter stage falls back to heuristics when false.
	OpenAccess bool `json:"open_access"`

	// Similarity is the cosine similarity against the research question,
	// populated by the screening stage. Only meaningful for one screening
	// run; it must not be reused across questions.
	Similarity float64 `json:"similarity"`

	// Relevance is the qualitative band assigned during screening.
	Relevance Relevance `json:"relevance,omitempty"`

	// TextBasis records which field fed the embedding (fulltext/abstract/title).
	TextBasis string `json:"text_basis,omitempty"`

	// RemovalReason is set by the deduplication stage when the article is
	// dropped as a duplicate.
	RemovalReason string `json:"removal_reason,omitempty"`

	// ExclusionReason is set by the filter or screening stage when the
	// article is excluded.
	ExclusionReason string `json:"exclusion_reason,omitempty"`
}

// TitleFingerprint normalizes a title into a deterministic fingerprint for
// exact duplicate detection: lowercased, alphanumeric-only, truncated.
// Different casing and punctuation of the same title produce the same
// fingerprint ("COVID-19 Detection" == "covid 19 detection").
func TitleFingerprint(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			// Cap on rune boundaries so multibyte titles stay valid UTF-8.
			if sb.Len()+utf8.RuneLen(r) > fingerprintMaxLength {
				break
			}
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// HasDOI returns true if the article carries a DOI of non-trivial length.
func (a *Article) HasDOI() bool {
	return len(strings.TrimSpace(a.DOI)) >= minDOILength
}

// IdentityKey returns the deterministic identity fingerprint used for
// exact-duplicate detection: the lowercased DOI when present, else the
// normalized title fingerprint combined with the publication year.
// Returns an empty string for degenerate records with neither DOI nor title.
func (a *Article) IdentityKey() string {
	if a.HasDOI() {
		return "doi:" + strings.ToLower(strings.TrimSpace(a.DOI))
	}

	fp := TitleFingerprint(a.Title)
	if fp == "" {
		return ""
	}
	return "title:" + fp + ":" + strconv.Itoa(a.Year)
}

// EmbeddingText builds the text basis for embedding this article, in
// priority order: full text (capped, title-prefixed) over abstract over
// title. capChars bounds the full-text contribution; 0 means no cap.
// Returns the text and the basis label; empty text means the record has
// no usable content.
func (a *Article) EmbeddingText(capChars int) (string, string) {
	title := strings.TrimSpace(a.Title)

	if ft := strings.TrimSpace(a.FullText); ft != "" {
		if capChars > 0 && len(ft) > capChars {
			ft = ft[:capChars]
		}
		return strings.TrimSpace(title + " " + ft), TextBasisFullText
	}

	if abs := strings.TrimSpace(a.Abstract); abs != "" {
		return strings.TrimSpace(title + " " + abs), TextBasisAbstract
	}

	if title != "" {
		return title, TextBasisTitle
	}

	return "", TextBasisNone
}

// HasUsableLink reports whether the article carries a link a reviewer can
// actually open: a direct PDF link first, else a landing-page URL.
// Links below a minimal length are treated as absent.
func (a *Article) HasUsableLink() bool {
	if len(strings.TrimSpace(a.PDFURL)) >= minUsableLinkLength {
		return true
	}
	return len(strings.TrimSpace(a.URL)) >= minUsableLinkLength
}

// NewArticle creates an Article with a fresh ID and the given source tag.
func NewArticle(source SourceType) *Article {
	return &Article{
		ID:     uuid.New(),
		Source: source,
	}
}
