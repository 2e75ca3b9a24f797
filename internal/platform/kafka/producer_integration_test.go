//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bciers/internal/platform/config"
	"bciers/pkg/platform/audit/relay"
	"bciers/pkg/testutil/containers"
)

func TestProducerPublishesToAuditTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker := containers.NewRedpanda(t)

	p, err := NewProducer(config.Kafka{Brokers: []string{broker}, AuditTopic: "bciers.audit", ClientID: "test"})
	require.NoError(t, err)
	require.NotNil(t, p)
	defer p.Close()

	require.NoError(t, p.EnsureTopic(ctx, 1))
	require.NoError(t, p.EnsureTopic(ctx, 1), "an existing topic is accepted")
	require.NoError(t, p.Ping(ctx))

	require.NoError(t, p.Publish(ctx, []relay.Message{{
		Key:     []byte("24-0001-25-1"),
		Value:   []byte(`{"action":"obligation_created"}`),
		Headers: map[string]string{"event_type": "obligation_created"},
	}}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("bciers.audit"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "24-0001-25-1", string(records[0].Key))
	require.Len(t, records[0].Headers, 1)
	assert.Equal(t, "obligation_created", string(records[0].Headers[0].Value))
}
