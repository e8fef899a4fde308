package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const playSessionKey = "play:session:%s" // String, presence marker with TTL

// RedisRegistry shares claims between server processes through Redis.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

// Claim uses SETNX with an expiry so concurrent requests race inside Redis.
func (r *RedisRegistry) Claim(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}
	ok, err := r.client.SetNX(ctx, fmt.Sprintf(playSessionKey, key), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim play session: %w", err)
	}
	return ok, nil
}
