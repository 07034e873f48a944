package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	followersCountKeyPrefix = "graph:followers:"
	hotKeyScoresKey         = "graph:hotkey:scores"

	// followersCountTTL bounds how long a count written from a stale read can survive.
	followersCountTTL = time.Hour
)

// FollowStore defines Redis operations for follower-count caching and hot key tracking.
type FollowStore interface {
	GetFollowersCount(ctx context.Context, userID string) (int64, bool, error)
	SetFollowersCount(ctx context.Context, userID string, count int64) error
	InvalidateFollowersCount(ctx context.Context, userIDs ...string) error
	RecordAccess(ctx context.Context, userID string) error
	GetTopHotKeys(ctx context.Context, n int64) ([]string, error)
	ResetHotKeyScores(ctx context.Context) error
}

// RedisFollowStore implements FollowStore backed by Redis.
type RedisFollowStore struct {
	client *redis.Client
	prefix string
}

// NewRedisFollowStore wraps an already connected client. Keys are namespaced by prefix.
// The client is owned by the caller.
func NewRedisFollowStore(client *redis.Client, prefix string) *RedisFollowStore {
	return &RedisFollowStore{client: client, prefix: prefix}
}

func (s *RedisFollowStore) followersCountKey(userID string) string {
	return s.prefix + ":" + followersCountKeyPrefix + userID
}

func (s *RedisFollowStore) hotKeyScoresKey() string {
	return s.prefix + ":" + hotKeyScoresKey
}

// GetFollowersCount returns the cached follower count for a user.
// Returns (count, true, nil) on hit, (0, false, nil) on miss, (0, false, err) on error.
func (s *RedisFollowStore) GetFollowersCount(ctx context.Context, userID string) (int64, bool, error) {
	val, err := s.client.Get(ctx, s.followersCountKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get followers count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse followers count: %w", err)
	}
	return count, true, nil
}

// SetFollowersCount stores the follower count for a user.
func (s *RedisFollowStore) SetFollowersCount(ctx context.Context, userID string, count int64) error {
	if err := s.client.Set(ctx, s.followersCountKey(userID), count, followersCountTTL).Err(); err != nil {
		return fmt.Errorf("redis set followers count: %w", err)
	}
	return nil
}

// InvalidateFollowersCount drops the cached counts so the next read goes to the database.
func (s *RedisFollowStore) InvalidateFollowersCount(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, s.followersCountKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate followers count: %w", err)
	}
	return nil
}

// RecordAccess increments the access score for a user in the hot key sorted set.
func (s *RedisFollowStore) RecordAccess(ctx context.Context, userID string) error {
	if err := s.client.ZIncrBy(ctx, s.hotKeyScoresKey(), 1, userID).Err(); err != nil {
		return fmt.Errorf("redis record access: %w", err)
	}
	return nil
}

// GetTopHotKeys returns the top-n most accessed user IDs.
func (s *RedisFollowStore) GetTopHotKeys(ctx context.Context, n int64) ([]string, error) {
	keys, err := s.client.ZRevRange(ctx, s.hotKeyScoresKey(), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get top hot keys: %w", err)
	}
	return keys, nil
}

// ResetHotKeyScores deletes the hot key scores sorted set.
func (s *RedisFollowStore) ResetHotKeyScores(ctx context.Context) error {
	if err := s.client.Del(ctx, s.hotKeyScoresKey()).Err(); err != nil {
		return fmt.Errorf("redis reset hot key scores: %w", err)
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ FollowStore = (*RedisFollowStore)(nil)
