package middleware

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, limit int) *RateLimiter {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis-backed test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimiter(client, RateLimitConfig{
		Window:    time.Minute,
		Limit:     limit,
		KeyPrefix: fmt.Sprintf("test:ratelimit:%d", time.Now().UnixNano()),
	})
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := setupRateLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := rl.IsAllowed(ctx, "device-1")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 3-i-1, remaining)
	}

	allowed, remaining, _, err := rl.IsAllowed(ctx, "device-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestRateLimiterIsolatesIdentities(t *testing.T) {
	rl := setupRateLimiter(t, 1)
	ctx := context.Background()

	allowed, _, _, err := rl.IsAllowed(ctx, "device-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = rl.IsAllowed(ctx, "device-2")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, _, err = rl.IsAllowed(ctx, "device-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}
