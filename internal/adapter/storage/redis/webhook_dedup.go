package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WebhookDedupStore implements ports.WebhookDedupStore using Redis SET NX.
// The gateway retries webhook delivery, so the same event id can arrive
// more than once.
type WebhookDedupStore struct {
	client *goredis.Client
	prefix string
}

// NewWebhookDedupStore creates a new Redis-backed webhook dedup store.
func NewWebhookDedupStore(client *goredis.Client) *WebhookDedupStore {
	return &WebhookDedupStore{
		client: client,
		prefix: "webhook:",
	}
}

// CheckAndSet atomically records an event id. Returns true if the event
// is new, false if it was already seen within the TTL.
func (s *WebhookDedupStore) CheckAndSet(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	key := s.prefix + eventID
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, event was already processed
			return false, nil
		}
		return false, fmt.Errorf("redis webhook dedup: %w", err)
	}
	return result == "OK", nil
}

// Delete removes a recorded event id. Called when processing fails after
// the id was recorded, so the gateway's retry is not dropped as a
// duplicate.
func (s *WebhookDedupStore) Delete(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.prefix+eventID).Err(); err != nil {
		return fmt.Errorf("redis webhook dedup delete: %w", err)
	}
	return nil
}
