package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "bciers/pkg/platform/audit"
	"bciers/pkg/platform/audit/store/memory"
	"bciers/pkg/platform/tx"
)

type recordingProducer struct {
	batches [][]Message
	err     error
}

func (p *recordingProducer) Publish(_ context.Context, msgs []Message) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, msgs)
	return nil
}

func seed(t *testing.T, store *memory.InMemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Append(context.Background(), audit.Event{
			Action:      audit.ActionObligationCreated,
			AggregateID: "24-0001-1",
		}))
	}
}

func TestRelay_RunOnce(t *testing.T) {
	store := memory.NewInMemoryStore()
	seed(t, store, 3)
	producer := &recordingProducer{}
	r := New(store, producer, tx.Inline{}, WithBatchSize(2))

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, producer.batches, 1)

	msg := producer.batches[0][0]
	assert.Equal(t, "24-0001-1", string(msg.Key))
	assert.Equal(t, "obligation_created", msg.Headers["event_type"])
	var payload audit.Payload
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "obligation_created", payload.Action)

	n, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_ProducerFailureKeepsEntries(t *testing.T) {
	store := memory.NewInMemoryStore()
	seed(t, store, 2)
	r := New(store, &recordingProducer{err: errors.New("broker down")}, tx.Inline{})

	_, err := r.RunOnce(context.Background())
	require.ErrorContains(t, err, "broker down")

	left, err := store.CountUnpublished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}
