package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisIdempotencyPrefix = "idempotency:"

// RedisIdempotencyStore shares stored responses between replicas. Expiry is
// left to Redis.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	data, err := s.client.Get(ctx, redisIdempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotency entry: %w", err)
	}
	return &response, true, nil
}

// Set keeps the first stored response when two requests race on one key.
func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency entry: %w", err)
	}

	if err := s.client.SetNX(ctx, redisIdempotencyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// Stop is a no-op; the client is closed with the rest of the connections.
func (s *RedisIdempotencyStore) Stop() {}
