package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// redisClient connects to REDIS_TEST_ADDR when set, otherwise starts a container.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	if addr := os.Getenv("REDIS_TEST_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { client.Close() })
		return client
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisCache(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	prefix := "jobmatch-test:" + t.Name() + ":"
	c := NewRedisCacheWithClient(client, prefix, time.Hour)

	t.Run("miss", func(t *testing.T) {
		val, ok := c.Get(ctx, "missing")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("set get with ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", []byte(`{"score":80}`), time.Minute))
		val, ok := c.Get(ctx, "k")
		require.True(t, ok)
		assert.Equal(t, `{"score":80}`, string(val))

		ttl, err := client.TTL(ctx, prefix+"k").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Second)
	})

	t.Run("invalidate pattern", func(t *testing.T) {
		for _, key := range []string{"a:1:1", "a:1:2", "a:2:1"} {
			require.NoError(t, c.Set(ctx, key, []byte("x"), 0))
		}
		require.NoError(t, c.Invalidate(ctx, "a:1:*"))

		_, ok := c.Get(ctx, "a:1:1")
		assert.False(t, ok)
		_, ok = c.Get(ctx, "a:1:2")
		assert.False(t, ok)
		_, ok = c.Get(ctx, "a:2:1")
		assert.True(t, ok)

		require.NoError(t, c.Invalidate(ctx, "a:2:1"))
		_, ok = c.Get(ctx, "a:2:1")
		assert.False(t, ok)
	})
}
