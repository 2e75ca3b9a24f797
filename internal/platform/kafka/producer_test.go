package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bciers/internal/platform/config"
	"bciers/pkg/platform/audit/relay"
)

func TestNewProducerDisabledWithoutBrokers(t *testing.T) {
	p, err := NewProducer(config.Kafka{AuditTopic: "bciers.audit"})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestToRecord(t *testing.T) {
	r := toRecord("bciers.audit", relay.Message{
		Key:     []byte("24-0001-1"),
		Value:   []byte(`{"action":"obligation_created"}`),
		Headers: map[string]string{"event_type": "obligation_created"},
	})
	assert.Equal(t, "bciers.audit", r.Topic)
	assert.Equal(t, "24-0001-1", string(r.Key))
	require.Len(t, r.Headers, 1)
	assert.Equal(t, "event_type", r.Headers[0].Key)
	assert.Equal(t, "obligation_created", string(r.Headers[0].Value))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Publish(context.Background(), []relay.Message{{Value: []byte("x")}}))
}
