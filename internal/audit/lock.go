package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker elects a single auditing instance when several run side by side.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, token string) error
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return false, "", nil
	}
	return true, token, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// LocalLocker always grants the lock. Used when Redis is not configured and
// a single instance is assumed.
type LocalLocker struct{}

func (LocalLocker) TryLock(context.Context, string, time.Duration) (bool, string, error) {
	return true, uuid.NewString(), nil
}

func (LocalLocker) Unlock(context.Context, string, string) error {
	return nil
}
