package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/quill/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ProfileCache caches public author profiles by user id.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*domain.AuthorProfile, error)
	Set(ctx context.Context, profile *domain.AuthorProfile, ttl time.Duration) error
	Delete(ctx context.Context, userIDs ...string) error
}

// TrendingCache caches ranked trending pages by requested limit.
type TrendingCache interface {
	Get(ctx context.Context, limit int) ([]domain.PostView, error)
	Set(ctx context.Context, limit int, posts []domain.PostView, ttl time.Duration) error
}
