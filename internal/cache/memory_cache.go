package cache

import (
	"context"
	"sync"
	"time"

	"github.com/weiawesome/quill/internal/domain"
)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time // zero means no expiry
}

// memoryStore is a TTL map used when Redis is not configured.
type memoryStore[K comparable, T any] struct {
	mu      sync.Mutex
	entries map[K]memoryEntry[T]
	now     func() time.Time
}

func newMemoryStore[K comparable, T any]() *memoryStore[K, T] {
	return &memoryStore[K, T]{
		entries: make(map[K]memoryEntry[T]),
		now:     time.Now,
	}
}

func (s *memoryStore[K, T]) get(key K) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.entries[key]
	if !ok {
		return zero, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return zero, ErrCacheMiss
	}
	return e.value, nil
}

func (s *memoryStore[K, T]) set(key K, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry[T]{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
}

func (s *memoryStore[K, T]) del(keys ...K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
}

// MemoryProfileCache is a process-local ProfileCache.
type MemoryProfileCache struct {
	store *memoryStore[string, domain.AuthorProfile]
}

func NewMemoryProfileCache() *MemoryProfileCache {
	return &MemoryProfileCache{store: newMemoryStore[string, domain.AuthorProfile]()}
}

func (c *MemoryProfileCache) Get(_ context.Context, userID string) (*domain.AuthorProfile, error) {
	p, err := c.store.get(userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *MemoryProfileCache) Set(_ context.Context, profile *domain.AuthorProfile, ttl time.Duration) error {
	c.store.set(profile.ID, *profile, ttl)
	return nil
}

func (c *MemoryProfileCache) Delete(_ context.Context, userIDs ...string) error {
	c.store.del(userIDs...)
	return nil
}

// MemoryTrendingCache is a process-local TrendingCache.
type MemoryTrendingCache struct {
	store *memoryStore[int, []domain.PostView]
}

func NewMemoryTrendingCache() *MemoryTrendingCache {
	return &MemoryTrendingCache{store: newMemoryStore[int, []domain.PostView]()}
}

func (c *MemoryTrendingCache) Get(_ context.Context, limit int) ([]domain.PostView, error) {
	return c.store.get(limit)
}

func (c *MemoryTrendingCache) Set(_ context.Context, limit int, posts []domain.PostView, ttl time.Duration) error {
	c.store.set(limit, posts, ttl)
	return nil
}

var (
	_ ProfileCache  = (*MemoryProfileCache)(nil)
	_ TrendingCache = (*MemoryTrendingCache)(nil)
)
