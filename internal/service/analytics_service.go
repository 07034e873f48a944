package service

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/pkg/log"
)

const (
	growthWindow = 30 * 24 * time.Hour

	// Placeholder growth figures reported whenever the matching total is non-zero.
	commentsGrowthPlaceholder  = 15
	followersGrowthPlaceholder = 12
)

type analyticsServiceImpl struct {
	posts      repository.PostRepository
	engagement repository.EngagementRepository
	graph      SocialGraphService
	now        func() time.Time
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(posts repository.PostRepository, engagement repository.EngagementRepository, graph SocialGraphService) AnalyticsService {
	return &analyticsServiceImpl{
		posts:      posts,
		engagement: engagement,
		graph:      graph,
		now:        utcNow,
	}
}

// GetAnalytics totals the actor's engagement. View and like growth are the
// share of the totals earned by posts created in the last 30 days.
func (s *analyticsServiceImpl) GetAnalytics(ctx context.Context, actor *domain.User) (*domain.Analytics, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		all, recent domain.PostTotals
		comments    int64
		followers   int64
	)
	since := s.now().Add(-growthWindow)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		all, err = s.posts.Totals(gCtx, actor.ID, nil)
		return err
	})

	g.Go(func() error {
		var err error
		recent, err = s.posts.Totals(gCtx, actor.ID, &since)
		return err
	})

	g.Go(func() error {
		var err error
		comments, err = s.engagement.CountCommentsForAuthor(gCtx, actor.ID, domain.CommentStatusApproved)
		return err
	})

	g.Go(func() error {
		var err error
		followers, err = s.graph.FollowerCount(gCtx, actor.ID)
		return err
	})

	if err := g.Wait(); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to aggregate analytics")
		return nil, err
	}

	a := &domain.Analytics{
		TotalViews:     all.Views,
		TotalLikes:     all.Likes,
		TotalComments:  comments,
		TotalFollowers: followers,
		ViewsGrowth:    growthPercent(recent.Views, all.Views),
		LikesGrowth:    growthPercent(recent.Likes, all.Likes),
	}
	if comments > 0 {
		a.CommentsGrowth = commentsGrowthPlaceholder
	}
	if followers > 0 {
		a.FollowersGrowth = followersGrowthPlaceholder
	}
	return a, nil
}

// growthPercent returns part/total as a percentage rounded to one decimal, 0 when total is 0.
func growthPercent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

var _ AnalyticsService = (*analyticsServiceImpl)(nil)
