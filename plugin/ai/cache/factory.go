package cache

import (
	"context"
	"fmt"

	"github.com/hrygo/jobmatch/internal/profile"
)

// KeyPrefix namespaces every key this service writes to a shared backend.
const KeyPrefix = "jobmatch:"

// NewStoreFromProfile builds the configured cache backend.
func NewStoreFromProfile(ctx context.Context, p *profile.Profile) (Store, error) {
	switch p.CacheBackend {
	case "", "memory":
		return NewMemoryCache(MemoryConfig{DefaultTTL: p.MatchCacheTTL}), nil
	case "redis":
		return NewRedisCache(ctx, RedisConfig{
			Addr:       p.RedisAddr,
			Password:   p.RedisPassword,
			DB:         p.RedisDB,
			KeyPrefix:  KeyPrefix,
			DefaultTTL: p.MatchCacheTTL,
		})
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", p.CacheBackend)
	}
}
