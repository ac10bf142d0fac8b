package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// Request body limits.
const (
	maxRequestBodySize = 1 << 20
	maxJournals        = 50
)

// startReviewRequest is the JSON request body for starting a review.
type startReviewRequest struct {
	Question    string   `json:"question" validate:"required,min=3,max=2000"`
	Terms       []string `json:"terms,omitempty" validate:"max=50,dive,min=1,max=200"`
	StartYear   int      `json:"start_year,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	EndYear     int      `json:"end_year,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	OpenAccess  bool     `json:"open_access,omitempty"`
	Language    string   `json:"language,omitempty" validate:"omitempty,len=2"`
	Journals    []string `json:"journals,omitempty"`
	TargetCount int      `json:"target_count,omitempty" validate:"omitempty,gte=1,lte=500"`
}

// startReview handles POST /api/v1/reviews. The session is created
// synchronously; the pipeline itself runs in the background and the
// caller polls the session status.
func (s *Server) startReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req startReviewRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.StartYear > 0 && req.EndYear > 0 && req.EndYear < req.StartYear {
		writeError(w, http.StatusBadRequest, "end_year must not precede start_year")
		return
	}
	if len(req.Journals) > maxJournals {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("journals must have at most %d entries", maxJournals))
		return
	}

	review := domain.ReviewRequest{
		ID:       uuid.New(),
		Question: req.Question,
		Terms:    req.Terms,
		Criteria: domain.FilterCriteria{
			StartYear:  req.StartYear,
			EndYear:    req.EndYear,
			OpenAccess: req.OpenAccess,
			Language:   strings.ToLower(req.Language),
			Journals:   req.Journals,
		},
		TargetCount: req.TargetCount,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.sessions.CreateSession(ctx, review); err != nil {
		writeDomainError(w, err)
		return
	}

	// The run outlives the request; failures are recorded on the session.
	go func() {
		if _, err := s.runner.Run(context.Background(), review); err != nil {
			s.logger.Error().Err(err).Str("review_id", review.ID.String()).Msg("review run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, startReviewResponse{
		ReviewID:  review.ID.String(),
		Status:    string(domain.ReviewStatusPending),
		CreatedAt: review.CreatedAt,
	})
}

// getReview handles GET /api/v1/reviews/{reviewID}.
func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review ID")
		return
	}

	session, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(session))
}

// getReviewResult handles GET /api/v1/reviews/{reviewID}/result. The
// result exists only for completed reviews; earlier requests get 409
// with the current status so clients know to keep polling.
func (s *Server) getReviewResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review ID")
		return
	}

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if session.Status != domain.ReviewStatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "review has no result yet",
			"status": string(session.Status),
		})
		return
	}

	result, err := s.sessions.GetResult(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToResponse(result))
}

// listReviews handles GET /api/v1/reviews. Returns recent sessions,
// most recently updated first; ?limit caps the page size.
func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	sessions, err := s.sessions.ListSessions(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]reviewStatusResponse, len(sessions))
	for i, session := range sessions {
		out[i] = sessionToResponse(session)
	}
	writeJSON(w, http.StatusOK, listReviewsResponse{Reviews: out, Count: len(out)})
}

// getReviewArticles handles GET /api/v1/reviews/{reviewID}/articles.
// Returns only the included articles, ranked by similarity, for clients
// that do not need the full funnel breakdown.
func (s *Server) getReviewArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review ID")
		return
	}

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if session.Status != domain.ReviewStatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "review has no articles yet",
			"status": string(session.Status),
		})
		return
	}

	result, err := s.sessions.GetResult(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reviewArticlesResponse{
		ReviewID: result.ReviewID.String(),
		Articles: articlesToResponse(result.Included),
		Count:    len(result.Included),
	})
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// validationMessage flattens a validator error into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed validation on %s", strings.ToLower(fe.Field()), fe.Tag())
}
