package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bciers/pkg/domain"
	audit "bciers/pkg/platform/audit"
	"bciers/pkg/platform/audit/store/memory"
	"bciers/pkg/requestcontext"
)

func TestPublisher_Emit(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	guid := id.UserGUIDFrom(uuid.New())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithUser(context.Background(), guid, "industry_user")
	ctx = requestcontext.WithRequestID(ctx, "req-7")
	ctx = requestcontext.WithTime(ctx, now)

	err := pub.Emit(ctx, audit.Event{Action: audit.ActionReportSubmitted, AggregateID: "rv-1"})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, guid, events[0].ActorGUID)
	assert.Equal(t, "req-7", events[0].RequestID)
	assert.Equal(t, now, events[0].Timestamp)
}

func TestPublisher_Validation(t *testing.T) {
	pub := New(memory.NewInMemoryStore())
	assert.ErrorContains(t, pub.Emit(context.Background(), audit.Event{AggregateID: "x"}), "requires Action")
	assert.ErrorContains(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionObligationCreated}), "requires AggregateID")
}

func TestPublisher_FailClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	store.Failure = errors.New("outbox unavailable")
	pub := New(store)

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionObligationCreated, AggregateID: "24-0001-1"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "compliance audit persistence failed")
	assert.Empty(t, store.Events())
}
