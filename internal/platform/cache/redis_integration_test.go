//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bciers/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	client := containers.NewRedis(t)

	c := NewRedis(client, "test:")
	require.NoError(t, c.Set(ctx, "k", account{ID: "1", Name: "Acme"}, time.Minute))

	var got account
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Name)

	ok, err = c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
