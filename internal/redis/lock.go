package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireBroadcastLock attempts to take the fan-out guard for a
// booking. Returns true if acquired, false if another broadcast for
// the same booking is already in flight. The guard only deduplicates
// notification storms; correctness of acceptance is enforced by row
// locks in the database.
func (s *LockStore) AcquireBroadcastLock(ctx context.Context, tenantID, bookingID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("tenant:%s:lock:broadcast:%s", tenantID, bookingID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseBroadcastLock releases the fan-out guard.
func (s *LockStore) ReleaseBroadcastLock(ctx context.Context, tenantID, bookingID string) error {
	key := fmt.Sprintf("tenant:%s:lock:broadcast:%s", tenantID, bookingID)
	return s.client.Del(ctx, key).Err()
}
