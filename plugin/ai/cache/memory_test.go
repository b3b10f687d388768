package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, capacity int) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(MemoryConfig{Capacity: capacity, DefaultTTL: time.Hour, CleanupInterval: -1})
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	val, ok := c.Get(ctx, "missing")
	assert.False(t, ok)
	assert.Nil(t, val)

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 0))
	require.NoError(t, c.Set(ctx, "k", []byte("v2"), 0))

	val, ok = c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), val)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_StoresCopy(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	buf := []byte("original")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	copy(buf, "mutated!")

	val, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "original", string(val))

	copy(val, "mutated!")
	val, ok = c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "original", string(val))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, 10)

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "default", []byte("b"), 0))

	clock.Advance(59 * time.Second)
	_, ok := c.Get(ctx, "short")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok, "entry expires exactly at its ttl")

	_, ok = c.Get(ctx, "default")
	assert.True(t, ok)

	clock.Advance(time.Hour)
	assert.Equal(t, 1, c.removeExpired())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 3)

	for i := 1; i <= 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
	}
	// touch k1 so k2 becomes the oldest
	_, ok := c.Get(ctx, "k1")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "k4", []byte("v"), 0))
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get(ctx, "k2")
	assert.False(t, ok)
	for _, key := range []string{"k1", "k3", "k4"} {
		_, ok := c.Get(ctx, key)
		assert.True(t, ok, key)
	}
}

func TestMemoryCache_Invalidate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		pattern string
		remain  []string
	}{
		{name: "exact key", pattern: "job-analysis-v2:1:10", remain: []string{"job-analysis-v2:1:11", "job-analysis-v2:2:10", "user_embedding:1"}},
		{name: "user prefix", pattern: "job-analysis-v2:1:*", remain: []string{"job-analysis-v2:2:10", "user_embedding:1"}},
		{name: "job suffix", pattern: "job-analysis-v2:*:10", remain: []string{"job-analysis-v2:1:11", "user_embedding:1"}},
		{name: "no match", pattern: "other:*", remain: []string{"job-analysis-v2:1:10", "job-analysis-v2:1:11", "job-analysis-v2:2:10", "user_embedding:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCache(t, 10)
			for _, key := range []string{"job-analysis-v2:1:10", "job-analysis-v2:1:11", "job-analysis-v2:2:10", "user_embedding:1"} {
				require.NoError(t, c.Set(ctx, key, []byte("x"), 0))
			}

			require.NoError(t, c.Invalidate(ctx, tt.pattern))
			assert.Equal(t, len(tt.remain), c.Len())
			for _, key := range tt.remain {
				_, ok := c.Get(ctx, key)
				assert.True(t, ok, key)
			}
		})
	}
}

func TestMemoryCache_InvalidateBadPattern(t *testing.T) {
	c, _ := newTestCache(t, 10)
	assert.Error(t, c.Invalidate(context.Background(), "abc[*"))
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryConfig{Capacity: 50, CleanupInterval: time.Millisecond})
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (n*200+j)%80)
				_ = c.Set(ctx, key, []byte("v"), 0)
				c.Get(ctx, key)
				if j%50 == 0 {
					_ = c.Invalidate(ctx, "k1*")
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
	require.NoError(t, c.Close())
}
