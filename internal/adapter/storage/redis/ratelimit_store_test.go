package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		res, err := store.Allow(ctx, "login:1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d of 5", i)
		assert.Equal(t, int64(5), res.Limit)
		assert.Equal(t, 5-i, res.Remaining)
	}

	res, err := store.Allow(ctx, "login:1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
	}

	res, err := store.Allow(ctx, "login:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(2), res.Remaining)
}

func TestRateLimitStore_WindowReset(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	res, err := store.Allow(ctx, "payments:user1", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = store.Allow(ctx, "payments:user1", 1, time.Second)
	require.NoError(t, err)
	if res.Allowed {
		t.Skip("window boundary crossed between calls")
	}

	// A new fixed window means a new counter key.
	time.Sleep(1100 * time.Millisecond)

	res, err = store.Allow(ctx, "payments:user1", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitStore_ResetAtAdvances(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewRateLimitStore(client)

	res, err := store.Allow(context.Background(), fmt.Sprintf("k:%d", time.Now().UnixNano()), 10, time.Minute)
	require.NoError(t, err)
	assert.Greater(t, res.ResetAt, time.Now().Unix()-60)
	assert.LessOrEqual(t, res.ResetAt, time.Now().Unix()+60)
}
