package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// Compile-time interface verification.
var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory SessionStore. State is lost on restart, so
// it suits single-node deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.ReviewSession
	results  map[uuid.UUID]*domain.ReviewResult
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*domain.ReviewSession),
		results:  make(map[uuid.UUID]*domain.ReviewResult),
	}
}

// CreateSession records a new review session in pending state.
func (s *MemoryStore) CreateSession(_ context.Context, req domain.ReviewRequest) error {
	if req.ID == uuid.Nil {
		return domain.NewValidationError("id", "review ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[req.ID]; exists {
		return domain.NewValidationError("id", "review already exists")
	}

	s.sessions[req.ID] = &domain.ReviewSession{
		Request:   req,
		Status:    domain.ReviewStatusPending,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// GetSession retrieves a session by review ID.
func (s *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("review", id.String())
	}

	copied := *session
	return &copied, nil
}

// UpdateStatus moves a session to the given status.
func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ReviewStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.NewNotFoundError("review", id.String())
	}

	session.Status = status
	session.UpdatedAt = time.Now().UTC()
	if status == domain.ReviewStatusFailed {
		session.Error = errMsg
	}
	return nil
}

// SaveResult stores a completed review result.
func (s *MemoryStore) SaveResult(_ context.Context, result *domain.ReviewResult) error {
	if result == nil || result.ReviewID == uuid.Nil {
		return domain.NewValidationError("result", "result with review ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[result.ReviewID]; !ok {
		return domain.NewNotFoundError("review", result.ReviewID.String())
	}

	s.results[result.ReviewID] = result
	return nil
}

// ListSessions returns up to limit sessions, most recently updated first.
func (s *MemoryStore) ListSessions(_ context.Context, limit int) ([]*domain.ReviewSession, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*domain.ReviewSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		sessions = append(sessions, &copied)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// GetResult retrieves the stored result for a review.
func (s *MemoryStore) GetResult(_ context.Context, id uuid.UUID) (*domain.ReviewResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, domain.NewNotFoundError("review result", id.String())
	}
	return result, nil
}
