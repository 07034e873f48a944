package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/quill/internal/domain"
)

// jsonStore reads and writes JSON values of type T under string keys.
type jsonStore[T any] struct {
	client *redis.Client
}

func (s jsonStore[T]) get(ctx context.Context, key string) (*T, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &value, nil
}

func (s jsonStore[T]) set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (s jsonStore[T]) del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// RedisProfileCache implements ProfileCache on Redis.
type RedisProfileCache struct {
	store  jsonStore[domain.AuthorProfile]
	prefix string
}

// NewRedisProfileCache creates a profile cache on an already connected client.
func NewRedisProfileCache(client *redis.Client, prefix string) *RedisProfileCache {
	return &RedisProfileCache{
		store:  jsonStore[domain.AuthorProfile]{client: client},
		prefix: prefix,
	}
}

func (c *RedisProfileCache) BuildKeyByID(userID string) string {
	return fmt.Sprintf("%s:profile:%s", c.prefix, userID)
}

func (c *RedisProfileCache) Get(ctx context.Context, userID string) (*domain.AuthorProfile, error) {
	return c.store.get(ctx, c.BuildKeyByID(userID))
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *domain.AuthorProfile, ttl time.Duration) error {
	return c.store.set(ctx, c.BuildKeyByID(profile.ID), *profile, ttl)
}

func (c *RedisProfileCache) Delete(ctx context.Context, userIDs ...string) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.BuildKeyByID(id))
	}
	return c.store.del(ctx, keys...)
}

// RedisTrendingCache implements TrendingCache on Redis.
type RedisTrendingCache struct {
	store  jsonStore[[]domain.PostView]
	prefix string
}

// NewRedisTrendingCache creates a trending cache on an already connected client.
func NewRedisTrendingCache(client *redis.Client, prefix string) *RedisTrendingCache {
	return &RedisTrendingCache{
		store:  jsonStore[[]domain.PostView]{client: client},
		prefix: prefix,
	}
}

func (c *RedisTrendingCache) BuildKey(limit int) string {
	return fmt.Sprintf("%s:trending:%d", c.prefix, limit)
}

func (c *RedisTrendingCache) Get(ctx context.Context, limit int) ([]domain.PostView, error) {
	posts, err := c.store.get(ctx, c.BuildKey(limit))
	if err != nil {
		return nil, err
	}
	return *posts, nil
}

func (c *RedisTrendingCache) Set(ctx context.Context, limit int, posts []domain.PostView, ttl time.Duration) error {
	return c.store.set(ctx, c.BuildKey(limit), posts, ttl)
}

var (
	_ ProfileCache  = (*RedisProfileCache)(nil)
	_ TrendingCache = (*RedisTrendingCache)(nil)
)
