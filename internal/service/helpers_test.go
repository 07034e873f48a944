package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/quill/internal/cache"
	"github.com/weiawesome/quill/internal/config"
	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/internal/store"
	"github.com/weiawesome/quill/internal/testutil"
	"github.com/weiawesome/quill/pkg/pubsub"
)

var testLimits = config.FeedConfig{
	DefaultLimit:     10,
	MaxLimit:         50,
	SuggestionsLimit: 10,
	TrendingLimit:    5,
	AuthorPostsLimit: 20,
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last(t *testing.T) *pubsub.Event {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	db         *gorm.DB
	clock      *testClock
	pub        *recordingPublisher
	followers  *store.MemoryFollowStore
	profiles   *cache.MemoryProfileCache
	trending   *cache.MemoryTrendingCache
	userRepo   *repository.GormUserRepository
	postRepo   *repository.GormPostRepository
	identity   *identityServiceImpl
	posts      *postServiceImpl
	engagement *engagementServiceImpl
	graph      *socialGraphService
	feed       *feedServiceImpl
	analytics  *analyticsServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &fixture{
		db:        db,
		clock:     &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		pub:       &recordingPublisher{},
		followers: store.NewMemoryFollowStore(),
		profiles:  cache.NewMemoryProfileCache(),
		trending:  cache.NewMemoryTrendingCache(),
		userRepo:  repository.NewGormUserRepository(db),
		postRepo:  repository.NewGormPostRepository(db),
	}
	engagementRepo := repository.NewGormEngagementRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	f.identity = NewIdentityService(f.userRepo, f.profiles, time.Minute).(*identityServiceImpl)

	f.posts = NewPostService(f.postRepo, f.identity, f.pub, testLimits).(*postServiceImpl)
	f.posts.now = f.clock.Now

	f.engagement = NewEngagementService(engagementRepo, f.postRepo, f.identity, f.pub, testLimits).(*engagementServiceImpl)
	f.engagement.now = f.clock.Now

	f.graph = NewSocialGraphService(followRepo, f.followers, f.identity, f.pub, testLimits).(*socialGraphService)

	f.feed = NewFeedService(f.postRepo, f.userRepo, f.graph, f.identity, f.trending, time.Minute, testLimits).(*feedServiceImpl)
	f.feed.now = f.clock.Now

	f.analytics = NewAnalyticsService(f.postRepo, engagementRepo, f.graph).(*analyticsServiceImpl)
	f.analytics.now = f.clock.Now

	return f
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := f.identity.Resolve(context.Background(), &domain.Identity{
		TokenIdentifier: "https://issuer.example|" + name,
		Name:            name,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) publish(t *testing.T, author *domain.User, title string) string {
	t.Helper()
	id, err := f.posts.Publish(context.Background(), author, &domain.PostInput{Title: title, Content: "body"})
	require.NoError(t, err)
	return id
}

func (f *fixture) setViews(t *testing.T, postID string, views int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&domain.PostModel{}).Where("id = ?", postID).UpdateColumn("view_count", views).Error)
}

func strPtr(s string) *string { return &s }
