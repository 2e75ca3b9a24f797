//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bciers/internal/notification/models"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	s := NewPostgres(containers.NewPostgres(t))
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("templates upsert", func(t *testing.T) {
		_, err := s.FindTemplate(ctx, "registration_confirmation")
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		require.NoError(t, s.SaveTemplate(ctx, &models.Template{Name: "registration_confirmation", Subject: "a", Body: "b", UpdatedAt: now}))
		require.NoError(t, s.SaveTemplate(ctx, &models.Template{Name: "registration_confirmation", Subject: "c", Body: "d", UpdatedAt: now}))
		got, err := s.FindTemplate(ctx, "registration_confirmation")
		require.NoError(t, err)
		assert.Equal(t, "c", got.Subject)
		assert.Equal(t, "d", got.Body)
	})

	t.Run("email lifecycle", func(t *testing.T) {
		e := &models.Email{
			ID:           uuid.New(),
			TemplateName: "access_request_approved",
			Recipients:   []string{"a@example.com", "b@example.com"},
			Status:       models.EmailQueued,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, s.CreateEmail(ctx, e))
		require.ErrorIs(t, s.CreateEmail(ctx, e), sentinel.ErrAlreadyUsed)

		e.Sent("tx-1", []string{"m-1", "m-2"}, now.Add(time.Minute))
		require.NoError(t, s.UpdateEmail(ctx, e))

		got, err := s.FindEmail(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EmailSent, got.Status)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.Recipients)
		assert.Equal(t, []string{"m-1", "m-2"}, got.MessageIDs)

		sent, err := s.ListEmailsByStatus(ctx, models.EmailSent, 0)
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.Equal(t, e.ID, sent[0].ID)

		missing := &models.Email{ID: uuid.New(), Status: models.EmailFailed}
		require.ErrorIs(t, s.UpdateEmail(ctx, missing), sentinel.ErrNotFound)
	})
}
