package httpserver

import (
	"time"

	"github.com/helixir/systematic-review-service/internal/domain"
)

type startReviewResponse struct {
	ReviewID  string    `json:"review_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type reviewStatusResponse struct {
	ReviewID    string    `json:"review_id"`
	Question    string    `json:"question"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	TargetCount int       `json:"target_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type articleResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors,omitempty"`
	Year            int      `json:"year,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	Abstract        string   `json:"abstract,omitempty"`
	Journal         string   `json:"journal,omitempty"`
	URL             string   `json:"url,omitempty"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	Source          string   `json:"source,omitempty"`
	OpenAccess      bool     `json:"open_access"`
	Similarity      float64  `json:"similarity"`
	Relevance       string   `json:"relevance,omitempty"`
	TextBasis       string   `json:"text_basis,omitempty"`
	RemovalReason   string   `json:"removal_reason,omitempty"`
	ExclusionReason string   `json:"exclusion_reason,omitempty"`
}

type reviewResultResponse struct {
	ReviewID    string            `json:"review_id"`
	QueryText   string            `json:"query_text"`
	Included    []articleResponse `json:"included"`
	Removed     []articleResponse `json:"removed,omitempty"`
	Excluded    []articleResponse `json:"excluded,omitempty"`
	Funnel      domain.Funnel     `json:"funnel"`
	CompletedAt time.Time         `json:"completed_at"`
}

type listReviewsResponse struct {
	Reviews []reviewStatusResponse `json:"reviews"`
	Count   int                    `json:"count"`
}

type reviewArticlesResponse struct {
	ReviewID string            `json:"review_id"`
	Articles []articleResponse `json:"articles"`
	Count    int               `json:"count"`
}

func sessionToResponse(session *domain.ReviewSession) reviewStatusResponse {
	return reviewStatusResponse{
		ReviewID:    session.Request.ID.String(),
		Question:    session.Request.Question,
		Status:      string(session.Status),
		Error:       session.Error,
		TargetCount: session.Request.TargetCount,
		CreatedAt:   session.Request.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

func resultToResponse(result *domain.ReviewResult) reviewResultResponse {
	return reviewResultResponse{
		ReviewID:    result.ReviewID.String(),
		QueryText:   result.QueryText,
		Included:    articlesToResponse(result.Included),
		Removed:     articlesToResponse(result.Removed),
		Excluded:    articlesToResponse(result.Excluded),
		Funnel:      result.Funnel,
		CompletedAt: result.CompletedAt,
	}
}

func articlesToResponse(articles []*domain.Article) []articleResponse {
	out := make([]articleResponse, len(articles))
	for i, a := range articles {
		out[i] = articleResponse{
			ID:              a.ID.String(),
			Title:           a.Title,
			Authors:         a.Authors,
			Year:            a.Year,
			DOI:             a.DOI,
			Abstract:        a.Abstract,
			Journal:         a.Journal,
			URL:             a.URL,
			PDFURL:          a.PDFURL,
			Source:          string(a.Source),
			OpenAccess:      a.OpenAccess,
			Similarity:      a.Similarity,
			Relevance:       string(a.Relevance),
			TextBasis:       a.TextBasis,
			RemovalReason:   a.RemovalReason,
			ExclusionReason: a.ExclusionReason,
		}
	}
	return out
}
