package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/quill/internal/cache"
	"github.com/weiawesome/quill/internal/config"
	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
)

const trendingWindow = 7 * 24 * time.Hour

type feedServiceImpl struct {
	posts       repository.PostRepository
	users       repository.UserRepository
	graph       SocialGraphService
	identity    IdentityService
	trending    cache.TrendingCache
	trendingTTL time.Duration
	limits      config.FeedConfig
	sf          singleflight.Group
	now         func() time.Time
}

// NewFeedService creates a new feed service.
func NewFeedService(
	posts repository.PostRepository,
	users repository.UserRepository,
	graph SocialGraphService,
	identity IdentityService,
	trending cache.TrendingCache,
	trendingTTL time.Duration,
	limits config.FeedConfig,
) FeedService {
	return &feedServiceImpl{
		posts:       posts,
		users:       users,
		graph:       graph,
		identity:    identity,
		trending:    trending,
		trendingTTL: trendingTTL,
		limits:      limits,
		now:         utcNow,
	}
}

// GetFeed returns the newest live posts across all authors. One extra row
// is fetched to tell whether another page exists.
func (s *feedServiceImpl) GetFeed(ctx context.Context, limit int) (*domain.FeedPage, error) {
	limit = clampLimit(limit, s.limits.DefaultLimit, s.limits.MaxLimit)
	now := s.now()

	posts, err := s.posts.ListLive(ctx, repository.LiveQuery{Now: now, Limit: limit + 1})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list feed posts")
		return nil, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	views, err := enrichPosts(ctx, s.identity, posts, now)
	if err != nil {
		return nil, err
	}
	return &domain.FeedPage{Posts: views, HasMore: hasMore}, nil
}

// GetSuggestedUsers lists users the actor does not follow yet, newest accounts first.
func (s *feedServiceImpl) GetSuggestedUsers(ctx context.Context, actor *domain.User, limit int) ([]domain.AuthorProfile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	l := log.Ctx(ctx)
	limit = clampLimit(limit, s.limits.SuggestionsLimit, s.limits.MaxLimit)

	following, err := s.graph.FollowingIDs(ctx, actor.ID)
	if err != nil {
		l.Error().Err(err).Msg("failed to load following ids")
		return nil, err
	}

	exclude := append([]string{actor.ID}, following...)
	users, err := s.users.ListExcluding(ctx, exclude, limit)
	if err != nil {
		l.Error().Err(err).Msg("failed to list suggested users")
		return nil, err
	}

	out := make([]domain.AuthorProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

// GetTrendingPosts ranks live posts published in the last seven days by views.
// Results are cached briefly per limit and concurrent misses share one query.
func (s *feedServiceImpl) GetTrendingPosts(ctx context.Context, limit int) ([]domain.PostView, error) {
	limit = clampLimit(limit, s.limits.TrendingLimit, s.limits.MaxLimit)

	result, err, _ := s.sf.Do("trending:"+strconv.Itoa(limit), func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		cached, err := s.trending.Get(ctx, limit)
		if err == nil {
			metrics.RecordCacheLookup("trending", true)
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("trending cache get error")
		}
		metrics.RecordCacheLookup("trending", false)

		now := s.now()
		since := now.Add(-trendingWindow)
		posts, err := s.posts.ListLive(ctx, repository.LiveQuery{
			Now:     now,
			Since:   &since,
			ByViews: true,
			Limit:   limit,
		})
		if err != nil {
			return nil, err
		}

		views, err := enrichPosts(ctx, s.identity, posts, now)
		if err != nil {
			return nil, err
		}

		s.asyncCacheSet(limit, views)
		return views, nil
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to compute trending posts")
		return nil, err
	}

	return result.([]domain.PostView), nil
}

func (s *feedServiceImpl) asyncCacheSet(limit int, views []domain.PostView) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.trending.Set(ctx, limit, views, s.trendingTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Int("limit", limit).Msg("trending cache set error")
		}
	}()
}

var _ FeedService = (*feedServiceImpl)(nil)
