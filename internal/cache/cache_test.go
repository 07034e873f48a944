package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/quill/internal/domain"
)

func TestMemoryProfileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProfileCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.store.now = func() time.Time { return now }

	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, &domain.AuthorProfile{ID: "u1", Name: "Ada"}, time.Minute))
	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryProfileCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProfileCache()

	require.NoError(t, c.Set(ctx, &domain.AuthorProfile{ID: "u1"}, 0))
	require.NoError(t, c.Delete(ctx, "u1"))
	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryTrendingCacheKeyedByLimit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryTrendingCache()

	posts := []domain.PostView{{Post: domain.Post{ID: "p1"}}}
	require.NoError(t, c.Set(ctx, 5, posts, time.Minute))

	got, err := c.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, posts, got)

	_, err = c.Get(ctx, 10)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCaches(t *testing.T) {
	addr := os.Getenv("QUILL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUILL_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	prefix := "test-" + uuid.New().String()

	profiles := NewRedisProfileCache(client, prefix)
	require.NoError(t, profiles.Set(ctx, &domain.AuthorProfile{ID: "u1", Name: "Ada"}, time.Minute))
	got, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	require.NoError(t, profiles.Delete(ctx, "u1"))
	_, err = profiles.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	trending := NewRedisTrendingCache(client, prefix)
	require.NoError(t, trending.Set(ctx, 5, []domain.PostView{{Post: domain.Post{ID: "p1", Tags: []string{}}}}, time.Minute))
	posts, err := trending.Get(ctx, 5)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
}

func TestBuildKeys(t *testing.T) {
	assert.Equal(t, "quill:profile:u1", NewRedisProfileCache(nil, "quill").BuildKeyByID("u1"))
	assert.Equal(t, "quill:trending:5", NewRedisTrendingCache(nil, "quill").BuildKey(5))
}
