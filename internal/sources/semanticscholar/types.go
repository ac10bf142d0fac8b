// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// Semantic Scholar is a free, AI-powered research tool for scientific
// literature. This package implements the sources.Source interface.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page of results.
	// A value of 0 indicates no more results.
	Next int `json:"next"`

	// Data contains the list of papers returned by the search.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the API response.
type PaperResult struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Abstract is the paper's abstract text.
	Abstract string `json:"abstract"`

	// Year is the publication year.
	Year int `json:"year"`

	// Venue is the publication venue (conference, journal name, etc.).
	Venue string `json:"venue"`

	// Journal contains journal-specific information if available.
	Journal *Journal `json:"journal,omitempty"`

	// Authors is the list of paper authors.
	Authors []Author `json:"authors"`

	// URL is the Semantic Scholar landing page for the paper.
	URL string `json:"url"`

	// IsOpenAccess indicates whether the paper is open access.
	IsOpenAccess bool `json:"isOpenAccess"`

	// OpenAccessPDF contains information about the open access PDF if available.
	OpenAccessPDF *OpenAccessPDF `json:"openAccessPdf,omitempty"`

	// ExternalIDs contains external identifiers for the paper (DOI, ArXiv, etc.).
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	// DOI is the Digital Object Identifier.
	DOI string `json:"DOI,omitempty"`

	// ArXiv is the arXiv identifier.
	ArXiv string `json:"ArXiv,omitempty"`

	// PubMed is the PubMed identifier.
	PubMed string `json:"PubMed,omitempty"`
}

// Journal contains journal-specific information.
type Journal struct {
	// Name is the name of the journal.
	Name string `json:"name,omitempty"`
}

// Author represents a paper author.
type Author struct {
	// AuthorID is the Semantic Scholar unique identifier for the author.
	AuthorID string `json:"authorId,omitempty"`

	// Name is the author's name.
	Name string `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	// URL is the direct URL to the PDF.
	URL string `json:"url,omitempty"`

	// Status indicates the open access status (e.g., "HYBRID", "GOLD", "GREEN").
	Status string `json:"status,omitempty"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	// Error is the error message from the API.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}
