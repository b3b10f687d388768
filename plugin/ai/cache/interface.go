// Package cache provides the key-value store shared by match analyses and
// user embedding lookups.
package cache

import (
	"context"
	"time"
)

// CacheService is a byte-valued key-value store with per-entry expiry.
type CacheService interface {
	// Get returns the value and whether it was present and unexpired.
	// Backend failures read as a miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value. A non-positive ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes entries matching pattern.
	// pattern is an exact key or a glob such as "job-analysis-v2:42:*".
	Invalidate(ctx context.Context, pattern string) error
}

// Store is a CacheService that owns resources.
type Store interface {
	CacheService
	Close() error
}
