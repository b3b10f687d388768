package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hrygo/jobmatch/plugin/ai/timeout"
)

const scanBatch = 200

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	KeyPrefix  string
	DefaultTTL time.Duration
}

// RedisCache is a CacheService backed by Redis, shared across instances.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}

	slog.Info("Redis cache connected", "addr", cfg.Addr, "db", cfg.DB)
	return NewRedisCacheWithClient(client, cfg.KeyPrefix, cfg.DefaultTTL), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, prefix: prefix, defaultTTL: ttl}
}

// Get implements CacheService.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	callCtx, cancel := context.WithTimeout(ctx, timeout.CacheTimeout)
	defer cancel()

	data, err := r.client.Get(callCtx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set implements CacheService.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout.CacheTimeout)
	defer cancel()

	return pkgerrors.Wrapf(r.client.Set(callCtx, r.prefix+key, value, ttl).Err(), "failed to set cache key %s", key)
}

// Invalidate implements CacheService. Glob patterns are resolved with SCAN.
func (r *RedisCache) Invalidate(ctx context.Context, pattern string) error {
	if !strings.ContainsAny(pattern, "*?[") {
		return pkgerrors.Wrapf(r.client.Del(ctx, r.prefix+pattern).Err(), "failed to delete cache key %s", pattern)
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+pattern, scanBatch).Result()
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to scan cache keys %s", pattern)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return pkgerrors.Wrapf(err, "failed to delete %d cache keys", len(keys))
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisCache)(nil)
