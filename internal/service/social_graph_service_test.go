package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/quill/internal/consumer"
	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/pubsub"
)

func TestToggleFollowRejectsSelf(t *testing.T) {
	f := newFixture(t)
	ada := f.user(t, "ada")

	_, err := f.graph.ToggleFollow(context.Background(), ada, ada.ID)
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "user_id", verr.Field)

	var edges int64
	require.NoError(t, f.db.Unscoped().Model(&domain.FollowModel{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestToggleFollowRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.user(t, "ada")
	bob := f.user(t, "bob")

	count, err := f.graph.FollowerCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	state, err := f.graph.ToggleFollow(ctx, ada, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Followed, state)

	var payload pubsub.FollowToggledPayload
	require.NoError(t, f.pub.last(t).UnmarshalPayload(&payload))
	assert.Equal(t, "followed", payload.State)
	assert.Equal(t, bob.ID, payload.FollowingID)

	following, err := f.graph.IsFollowing(ctx, ada, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// The cached zero from before the follow must not survive it.
	count, err = f.graph.FollowerCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	followers, err := f.graph.ListFollowers(ctx, bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, ada.ID, followers[0].ID)

	followingList, err := f.graph.ListFollowing(ctx, ada.ID, 0)
	require.NoError(t, err)
	require.Len(t, followingList, 1)
	assert.Equal(t, bob.ID, followingList[0].ID)

	state, err = f.graph.ToggleFollow(ctx, ada, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Unfollowed, state)

	following, err = f.graph.IsFollowing(ctx, ada, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	count, err = f.graph.FollowerCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestToggleFollowMissingTarget(t *testing.T) {
	f := newFixture(t)
	ada := f.user(t, "ada")

	_, err := f.graph.ToggleFollow(context.Background(), ada, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.graph.ToggleFollow(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestFollowerCountRecordsHotKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.user(t, "bob")

	for i := 0; i < 3; i++ {
		_, err := f.graph.FollowerCount(ctx, bob.ID)
		require.NoError(t, err)
	}

	top, err := f.followers.GetTopHotKeys(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, top)
}

func TestHandleCDCEventInvalidatesCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.followers.SetFollowersCount(ctx, "u1", 5))
	require.NoError(t, f.followers.SetFollowersCount(ctx, "u2", 7))

	msg := &consumer.DebeziumMessage{Payload: consumer.DebeziumPayload{
		Op:    consumer.OpCreate,
		After: &consumer.DebeziumFollowRecord{ID: 1, FollowerID: "u9", FollowingID: "u1", DeletedAt: json.RawMessage("null")},
	}}
	require.NoError(t, f.graph.HandleCDCEvent(ctx, msg))

	_, found, err := f.followers.GetFollowersCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = f.followers.GetFollowersCount(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, found)

	// Snapshot reads leave the cache alone.
	msg.Payload.Op = consumer.OpSnapshot
	msg.Payload.After.FollowingID = "u2"
	require.NoError(t, f.graph.HandleCDCEvent(ctx, msg))
	_, found, err = f.followers.GetFollowersCount(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, found)
}
