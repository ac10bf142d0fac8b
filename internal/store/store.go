// Package store persists review sessions and their results. Two
// implementations are provided: an in-memory store for single-node
// deployments and tests, and a PostgreSQL store for durable state.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// SessionStore persists review sessions and results.
//
// All implementations are safe for concurrent use and return domain errors:
// domain.ErrNotFound for missing sessions, typed validation errors for bad
// input.
type SessionStore interface {
	// CreateSession records a new review session in pending state.
	CreateSession(ctx context.Context, req domain.ReviewRequest) error

	// GetSession retrieves a session by review ID.
	GetSession(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error)

	// UpdateStatus moves a session to the given status. errMsg is stored
	// for failed sessions and ignored otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus, errMsg string) error

	// SaveResult stores a completed review result.
	SaveResult(ctx context.Context, result *domain.ReviewResult) error

	// GetResult retrieves the stored result for a review.
	GetResult(ctx context.Context, id uuid.UUID) (*domain.ReviewResult, error)

	// ListSessions returns up to limit sessions, most recently updated
	// first. A non-positive limit applies a default cap.
	ListSessions(ctx context.Context, limit int) ([]*domain.ReviewSession, error)
}

// defaultListLimit caps ListSessions when no limit is given.
const defaultListLimit = 100
