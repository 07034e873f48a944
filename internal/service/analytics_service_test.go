package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.user(t, "ada")
	bob := f.user(t, "bob")
	now := f.clock.Now()

	a, err := f.analytics.GetAnalytics(ctx, ada)
	require.NoError(t, err)
	assert.Zero(t, *a)

	f.clock.Set(now.Add(-60 * 24 * time.Hour))
	old := f.publish(t, ada, "old")
	f.setViews(t, old, 60)

	f.clock.Set(now.Add(-24 * time.Hour))
	recent := f.publish(t, ada, "recent")
	f.setViews(t, recent, 40)
	f.clock.Set(now)

	_, err = f.engagement.ToggleLike(ctx, bob, old)
	require.NoError(t, err)

	a, err = f.analytics.GetAnalytics(ctx, ada)
	require.NoError(t, err)
	assert.EqualValues(t, 100, a.TotalViews)
	assert.EqualValues(t, 1, a.TotalLikes)
	assert.Equal(t, 40.0, a.ViewsGrowth)
	assert.Equal(t, 0.0, a.LikesGrowth)
	assert.Zero(t, a.CommentsGrowth)
	assert.Zero(t, a.FollowersGrowth)

	_, err = f.engagement.AddComment(ctx, bob, recent, "great")
	require.NoError(t, err)
	_, err = f.graph.ToggleFollow(ctx, bob, ada.ID)
	require.NoError(t, err)

	a, err = f.analytics.GetAnalytics(ctx, ada)
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.TotalComments)
	assert.EqualValues(t, 1, a.TotalFollowers)
	assert.Equal(t, 15.0, a.CommentsGrowth)
	assert.Equal(t, 12.0, a.FollowersGrowth)

	// Bob's own numbers are untouched by Ada's posts.
	b, err := f.analytics.GetAnalytics(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, b.TotalViews)
	assert.Zero(t, b.TotalComments)

	_, err = f.analytics.GetAnalytics(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
