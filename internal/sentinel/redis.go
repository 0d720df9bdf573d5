package sentinel

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Sentinel backed by Redis SETNX with TTL, for multi-node
// deployments where the consumed-token marker must be shared.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Redis-backed sentinel with the given marker TTL.
// ttl <= 0 falls back to DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// MarkConsumed sets the marker if absent. SETNX makes the check-and-set a
// single round trip, so two racing rotations cannot both see "not seen".
func (s *RedisStore) MarkConsumed(ctx context.Context, tokenID, userID string) (bool, error) {
	set, err := s.client.SetNX(ctx, markerKey(tokenID), userID, s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

func markerKey(tokenID string) string {
	return "authcore:consumed:" + tokenID
}
