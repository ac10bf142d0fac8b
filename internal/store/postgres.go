package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/systematic-review-service/internal/database"
	"github.com/helixir/systematic-review-service/internal/domain"
)

// pgUniqueViolation is the PostgreSQL unique_violation error code.
const pgUniqueViolation = "23505"

// Compile-time interface verification.
var _ SessionStore = (*PgStore)(nil)

// PgStore is a PostgreSQL SessionStore. The request and result documents
// are stored as JSONB; status and timestamps are columns so sessions can
// be queried without unmarshalling.
type PgStore struct {
	db database.DBTX
}

// NewPgStore creates a PostgreSQL session store. db may be a pool or an
// open transaction.
func NewPgStore(db database.DBTX) *PgStore {
	return &PgStore{db: db}
}

// CreateSession records a new review session in pending state.
func (s *PgStore) CreateSession(ctx context.Context, req domain.ReviewRequest) error {
	if req.ID == uuid.Nil {
		return domain.NewValidationError("id", "review ID is required")
	}

	requestJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal review request: %w", err)
	}

	query := `
		INSERT INTO review_sessions (id, request, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $4)`

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, query, req.ID, requestJSON, domain.ReviewStatusPending, now)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewValidationError("id", "review already exists")
		}
		return fmt.Errorf("failed to create review session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by review ID.
func (s *PgStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
	query := `
		SELECT request, status, error, updated_at
		FROM review_sessions
		WHERE id = $1`

	var (
		requestJSON []byte
		session     domain.ReviewSession
	)
	err := s.db.QueryRow(ctx, query, id).Scan(&requestJSON, &session.Status, &session.Error, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("review", id.String())
		}
		return nil, fmt.Errorf("failed to get review session: %w", err)
	}

	if err := json.Unmarshal(requestJSON, &session.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review request: %w", err)
	}
	return &session, nil
}

// UpdateStatus moves a session to the given status.
func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus, errMsg string) error {
	if status != domain.ReviewStatusFailed {
		errMsg = ""
	}

	query := `
		UPDATE review_sessions
		SET status = $1, error = $2, updated_at = $3
		WHERE id = $4`

	tag, err := s.db.Exec(ctx, query, status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("review", id.String())
	}
	return nil
}

// SaveResult stores a completed review result.
func (s *PgStore) SaveResult(ctx context.Context, result *domain.ReviewResult) error {
	if result == nil || result.ReviewID == uuid.Nil {
		return domain.NewValidationError("result", "result with review ID is required")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal review result: %w", err)
	}

	query := `
		INSERT INTO review_results (review_id, result, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_id) DO UPDATE
		SET result = EXCLUDED.result, completed_at = EXCLUDED.completed_at`

	_, err = s.db.Exec(ctx, query, result.ReviewID, resultJSON, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save review result: %w", err)
	}
	return nil
}

// ListSessions returns up to limit sessions, most recently updated first.
func (s *PgStore) ListSessions(ctx context.Context, limit int) ([]*domain.ReviewSession, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT request, status, error, updated_at
		FROM review_sessions
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list review sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ReviewSession
	for rows.Next() {
		var (
			requestJSON []byte
			session     domain.ReviewSession
		)
		if err := rows.Scan(&requestJSON, &session.Status, &session.Error, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review session: %w", err)
		}
		if err := json.Unmarshal(requestJSON, &session.Request); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review request: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review sessions: %w", err)
	}
	return sessions, nil
}

// GetResult retrieves the stored result for a review.
func (s *PgStore) GetResult(ctx context.Context, id uuid.UUID) (*domain.ReviewResult, error) {
	query := `SELECT result FROM review_results WHERE review_id = $1`

	var resultJSON []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("review result", id.String())
		}
		return nil, fmt.Errorf("failed to get review result: %w", err)
	}

	var result domain.ReviewResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review result: %w", err)
	}
	return &result, nil
}

// isPgUniqueViolation checks for a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
