package middleware

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when a Redis instance is reachable through REDIS_ADDR.
func TestRedisIdempotencyStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisIdempotencyStore(client, time.Minute)
	key := "test|" + uuid.NewString()
	defer client.Del(ctx, redisIdempotencyPrefix+key)

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, key, &CachedResponse{
		StatusCode: http.StatusCreated,
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"data":{}}`),
	}))
	require.NoError(t, store.Set(ctx, key, &CachedResponse{StatusCode: http.StatusOK}))

	cached, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, http.StatusCreated, cached.StatusCode)
	assert.Equal(t, `{"data":{}}`, string(cached.Body))
}
