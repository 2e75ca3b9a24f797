package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(time.Minute)

	var got account
	ok, err := c.Get(ctx, "bccr:acct:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "bccr:acct:1", account{ID: "103000000392508", Name: "Acme"}, time.Minute))
	ok, err = c.Get(ctx, "bccr:acct:1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Name)

	require.NoError(t, c.Delete(ctx, "bccr:acct:1"))
	ok, err = c.Get(ctx, "bccr:acct:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewFallsBackToLocal(t *testing.T) {
	c := New(nil, "bciers:", time.Minute)
	_, isLocal := c.(*Local)
	assert.True(t, isLocal)
}
