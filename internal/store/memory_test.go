package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/systematic-review-service/internal/domain"
)

func TestMemoryStore_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending session", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()

		require.NoError(t, s.CreateSession(ctx, req))

		session, err := s.GetSession(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusPending, session.Status)
		assert.Equal(t, req.Question, session.Request.Question)
		assert.Empty(t, session.Error)
	})

	t.Run("rejects duplicate ID", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()

		require.NoError(t, s.CreateSession(ctx, req))
		err := s.CreateSession(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects nil ID", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()
		req.ID = uuid.Nil

		err := s.CreateSession(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestMemoryStore_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown ID returns not found", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.GetSession(ctx, uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returns a copy", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()
		require.NoError(t, s.CreateSession(ctx, req))

		first, err := s.GetSession(ctx, req.ID)
		require.NoError(t, err)
		first.Status = domain.ReviewStatusFailed

		second, err := s.GetSession(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusPending, second.Status)
	})
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("advances status", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()
		require.NoError(t, s.CreateSession(ctx, req))

		require.NoError(t, s.UpdateStatus(ctx, req.ID, domain.ReviewStatusSearching, ""))

		session, err := s.GetSession(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusSearching, session.Status)
	})

	t.Run("stores error only when failed", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()
		require.NoError(t, s.CreateSession(ctx, req))

		require.NoError(t, s.UpdateStatus(ctx, req.ID, domain.ReviewStatusScreening, "ignored"))
		session, err := s.GetSession(ctx, req.ID)
		require.NoError(t, err)
		assert.Empty(t, session.Error)

		require.NoError(t, s.UpdateStatus(ctx, req.ID, domain.ReviewStatusFailed, "embedding provider unavailable"))
		session, err = s.GetSession(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusFailed, session.Status)
		assert.Equal(t, "embedding provider unavailable", session.Error)
	})

	t.Run("unknown ID returns not found", func(t *testing.T) {
		s := NewMemoryStore()

		err := s.UpdateStatus(ctx, uuid.New(), domain.ReviewStatusSearching, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMemoryStore_ListSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by most recently updated", func(t *testing.T) {
		s := NewMemoryStore()
		first := testRequest()
		second := testRequest()
		require.NoError(t, s.CreateSession(ctx, first))
		time.Sleep(time.Millisecond)
		require.NoError(t, s.CreateSession(ctx, second))
		time.Sleep(time.Millisecond)
		require.NoError(t, s.UpdateStatus(ctx, first.ID, domain.ReviewStatusSearching, ""))

		sessions, err := s.ListSessions(ctx, 0)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, first.ID, sessions[0].Request.ID)
		assert.Equal(t, second.ID, sessions[1].Request.ID)
	})

	t.Run("applies limit", func(t *testing.T) {
		s := NewMemoryStore()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.CreateSession(ctx, testRequest()))
		}

		sessions, err := s.ListSessions(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, sessions, 3)
	})

	t.Run("empty store returns no sessions", func(t *testing.T) {
		s := NewMemoryStore()

		sessions, err := s.ListSessions(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestMemoryStore_Results(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a result", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()
		require.NoError(t, s.CreateSession(ctx, req))

		result := &domain.ReviewResult{
			ReviewID:    req.ID,
			QueryText:   "statins cardiovascular outcomes",
			Funnel:      domain.Funnel{Identified: 120, ScreenedIn: 50},
			CompletedAt: time.Now().UTC(),
		}
		require.NoError(t, s.SaveResult(ctx, result))

		got, err := s.GetResult(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, result.QueryText, got.QueryText)
		assert.Equal(t, 120, got.Funnel.Identified)
	})

	t.Run("rejects result without session", func(t *testing.T) {
		s := NewMemoryStore()

		err := s.SaveResult(ctx, &domain.ReviewResult{ReviewID: uuid.New()})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects nil result", func(t *testing.T) {
		s := NewMemoryStore()

		err := s.SaveResult(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing result returns not found", func(t *testing.T) {
		s := NewMemoryStore()
		req := testRequest()
		require.NoError(t, s.CreateSession(ctx, req))

		_, err := s.GetResult(ctx, req.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
