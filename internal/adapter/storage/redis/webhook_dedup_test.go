package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestWebhookDedupStore_CheckAndSet(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWebhookDedupStore(client)
	ctx := context.Background()

	fresh, err := store.CheckAndSet(ctx, "evt_001", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh, "first delivery is new")

	fresh, err = store.CheckAndSet(ctx, "evt_001", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh, "redelivery is a duplicate")

	fresh, err = store.CheckAndSet(ctx, "evt_002", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh, "different event id is new")
}

func TestWebhookDedupStore_TTLExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWebhookDedupStore(client)
	ctx := context.Background()

	fresh, err := store.CheckAndSet(ctx, "evt_001", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	mr.FastForward(2 * time.Minute)

	fresh, err = store.CheckAndSet(ctx, "evt_001", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh, "event id reusable after the TTL")
}

func TestWebhookDedupStore_Delete(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWebhookDedupStore(client)
	ctx := context.Background()

	fresh, err := store.CheckAndSet(ctx, "evt_001", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	require.NoError(t, store.Delete(ctx, "evt_001"))

	fresh, err = store.CheckAndSet(ctx, "evt_001", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh, "released event id is processable again")
}

func TestWebhookDedupStore_Delete_MissingKey(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWebhookDedupStore(client)

	assert.NoError(t, store.Delete(context.Background(), "evt_never_seen"))
}

func TestWebhookDedupStore_KeysAreNamespaced(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWebhookDedupStore(client)

	_, err := store.CheckAndSet(context.Background(), "evt_001", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("webhook:evt_001"))
}
