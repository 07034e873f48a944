package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/internal/testutil"
	"github.com/weiawesome/quill/pkg/database"
)

type repos struct {
	db         *gorm.DB
	users      *repository.GormUserRepository
	posts      *repository.GormPostRepository
	engagement *repository.GormEngagementRepository
	follows    *repository.GormFollowRepository
}

func setup(t *testing.T) *repos {
	t.Helper()
	return newRepos(testutil.NewDB(t))
}

// backends runs fn against in-memory SQLite and, when configured, PostgreSQL.
// Only the PostgreSQL run exercises real lock interleavings.
func backends(t *testing.T, fn func(t *testing.T, r *repos)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, setup(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, newRepos(testutil.NewPostgresDB(t))) })
}

func newRepos(db *gorm.DB) *repos {
	return &repos{
		db:         db,
		users:      repository.NewGormUserRepository(db),
		posts:      repository.NewGormPostRepository(db),
		engagement: repository.NewGormEngagementRepository(db),
		follows:    repository.NewGormFollowRepository(db),
	}
}

func (r *repos) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{TokenIdentifier: "issuer|" + name, Name: name}
	require.NoError(t, r.users.Create(context.Background(), u))
	return u
}

func (r *repos) published(t *testing.T, authorID, title string, at time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{
		AuthorID:    authorID,
		Title:       title,
		Content:     "body",
		Tags:        []string{},
		PublishedAt: &at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	_, err := r.posts.Publish(context.Background(), p)
	require.NoError(t, err)
	return p
}

func TestUserRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	ada := r.user(t, "ada")
	grace := r.user(t, "grace")

	t.Run("duplicate token identifier", func(t *testing.T) {
		err := r.users.Create(ctx, &domain.User{TokenIdentifier: "issuer|ada", Name: "again"})
		assert.ErrorIs(t, err, repository.ErrUserExists)
	})

	t.Run("lookup by token identifier", func(t *testing.T) {
		got, err := r.users.GetByTokenIdentifier(ctx, "issuer|grace")
		require.NoError(t, err)
		assert.Equal(t, grace.ID, got.ID)

		_, err = r.users.GetByTokenIdentifier(ctx, "issuer|nobody")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("handle uniqueness", func(t *testing.T) {
		require.NoError(t, r.users.UpdateHandle(ctx, ada.ID, "ada_l"))
		assert.ErrorIs(t, r.users.UpdateHandle(ctx, grace.ID, "ada_l"), repository.ErrHandleTaken)
		assert.ErrorIs(t, r.users.UpdateHandle(ctx, "missing", "free"), repository.ErrUserNotFound)

		got, err := r.users.GetByHandle(ctx, "ada_l")
		require.NoError(t, err)
		assert.Equal(t, ada.ID, got.ID)
	})

	t.Run("batch lookup skips missing ids", func(t *testing.T) {
		got, err := r.users.GetByIDs(ctx, []string{ada.ID, "missing", grace.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("list excluding", func(t *testing.T) {
		got, err := r.users.ListExcluding(ctx, []string{ada.ID}, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, grace.ID, got[0].ID)
	})
}

func TestUpsertDraftKeepsSingleDraft(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")

	first := &domain.Post{AuthorID: author.ID, Title: "Hello", Content: "a", Tags: []string{"go"}}
	created, err := r.posts.UpsertDraft(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &domain.Post{AuthorID: author.ID, Title: "Hello World", Content: "b", UpdatedAt: time.Now().UTC()}
	created, err = r.posts.UpsertDraft(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	draft, err := r.posts.GetDraft(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", draft.Title)
	assert.Equal(t, []string{}, draft.Tags)

	var drafts int64
	require.NoError(t, r.db.Model(&domain.PostModel{}).
		Where("author_id = ? AND status = ?", author.ID, "draft").
		Count(&drafts).Error)
	assert.Equal(t, int64(1), drafts)
}

func TestDraftPartialIndexRejectsSecondDraft(t *testing.T) {
	r := setup(t)
	author := r.user(t, "author")

	insert := func(id string) error {
		return r.db.Create(&domain.PostModel{
			ID: id, AuthorID: author.ID, Title: "t", Content: "c", Status: "draft",
		}).Error
	}
	require.NoError(t, insert("p1"))
	assert.True(t, database.IsUniqueViolation(insert("p2")))
}

func TestPublish(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("converts existing draft", func(t *testing.T) {
		draft := &domain.Post{AuthorID: author.ID, Title: "Draft", Content: "c"}
		_, err := r.posts.UpsertDraft(ctx, draft)
		require.NoError(t, err)

		post := &domain.Post{AuthorID: author.ID, Title: "Final", Content: "c", PublishedAt: &now, UpdatedAt: now}
		fromDraft, err := r.posts.Publish(ctx, post)
		require.NoError(t, err)
		assert.True(t, fromDraft)
		assert.Equal(t, draft.ID, post.ID)

		got, err := r.posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PostStatusPublished, got.Status)
		assert.Equal(t, "Final", got.Title)
		require.NotNil(t, got.PublishedAt)
		assert.True(t, now.Equal(*got.PublishedAt))

		_, err = r.posts.GetDraft(ctx, author.ID)
		assert.ErrorIs(t, err, repository.ErrPostNotFound)
	})

	t.Run("inserts when no draft", func(t *testing.T) {
		post := &domain.Post{AuthorID: author.ID, Title: "Fresh", Content: "c", PublishedAt: &now}
		fromDraft, err := r.posts.Publish(ctx, post)
		require.NoError(t, err)
		assert.False(t, fromDraft)
		assert.NotEmpty(t, post.ID)
	})
}

func TestListLive(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	now := time.Now().UTC().Truncate(time.Second)

	old := r.published(t, author.ID, "old", now.Add(-10*24*time.Hour))
	recent := r.published(t, author.ID, "recent", now.Add(-time.Hour))
	newest := r.published(t, author.ID, "newest", now.Add(-time.Minute))

	future := now.Add(time.Hour)
	scheduled := &domain.Post{AuthorID: author.ID, Title: "later", Content: "c", ScheduledFor: &future, PublishedAt: &now}
	_, err := r.posts.Publish(ctx, scheduled)
	require.NoError(t, err)

	_, err = r.posts.UpsertDraft(ctx, &domain.Post{AuthorID: author.ID, Title: "draft", Content: "c"})
	require.NoError(t, err)

	t.Run("chronological hides drafts and scheduled", func(t *testing.T) {
		got, err := r.posts.ListLive(ctx, repository.LiveQuery{Now: now, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, newest.ID, got[0].ID)
		assert.Equal(t, recent.ID, got[1].ID)
		assert.Equal(t, old.ID, got[2].ID)
	})

	t.Run("scheduled becomes visible once due", func(t *testing.T) {
		got, err := r.posts.ListLive(ctx, repository.LiveQuery{Now: future, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("by views within window", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, r.posts.IncrementViews(ctx, recent.ID))
		}
		require.NoError(t, r.posts.IncrementViews(ctx, old.ID))

		since := now.Add(-7 * 24 * time.Hour)
		got, err := r.posts.ListLive(ctx, repository.LiveQuery{Now: now, Since: &since, ByViews: true, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, recent.ID, got[0].ID)
		assert.Equal(t, int64(3), got[0].ViewCount)
		assert.Equal(t, newest.ID, got[1].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := r.posts.ListLive(ctx, repository.LiveQuery{Now: now, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestIncrementViewsMissingPost(t *testing.T) {
	r := setup(t)
	assert.ErrorIs(t, r.posts.IncrementViews(context.Background(), "missing"), repository.ErrPostNotFound)
}

func TestDeleteCascades(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	reader := r.user(t, "reader")
	post := r.published(t, author.ID, "p", time.Now().UTC())

	_, _, err := r.engagement.ToggleLike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, r.engagement.CreateComment(ctx, &domain.Comment{
		PostID: post.ID, AuthorID: reader.ID, Content: "nice", Status: domain.CommentStatusApproved,
	}))

	require.NoError(t, r.posts.Delete(ctx, post.ID))

	var likes, comments int64
	require.NoError(t, r.db.Model(&domain.LikeModel{}).Count(&likes).Error)
	require.NoError(t, r.db.Model(&domain.CommentModel{}).Count(&comments).Error)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	assert.ErrorIs(t, r.posts.Delete(ctx, post.ID), repository.ErrPostNotFound)
}

func TestWritesAfterDeleteFindNoPost(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	reader := r.user(t, "reader")
	post := r.published(t, author.ID, "p", time.Now().UTC())

	require.NoError(t, r.posts.Delete(ctx, post.ID))

	_, _, err := r.engagement.ToggleLike(ctx, reader.ID, post.ID)
	assert.ErrorIs(t, err, repository.ErrPostNotFound)
	err = r.engagement.CreateComment(ctx, &domain.Comment{
		PostID: post.ID, AuthorID: reader.ID, Content: "late", Status: domain.CommentStatusApproved,
	})
	assert.ErrorIs(t, err, repository.ErrPostNotFound)

	assert.Zero(t, r.children(t, post.ID))
}

func TestDeleteRacingEngagementLeavesNoOrphans(t *testing.T) {
	backends(t, testDeleteRacingEngagement)
}

func testDeleteRacingEngagement(t *testing.T, r *repos) {
	ctx := context.Background()
	author := r.user(t, "author")

	const writers = 6
	readers := make([]string, writers)
	for i := range readers {
		readers[i] = r.user(t, fmt.Sprintf("reader-%d", i)).ID
	}

	for round := 0; round < 5; round++ {
		post := r.published(t, author.ID, fmt.Sprintf("p%d", round), time.Now().UTC())

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i, userID := range readers {
			wg.Add(1)
			go func(i int, userID string) {
				defer wg.Done()
				<-start

				var err error
				if i%2 == 0 {
					_, _, err = r.engagement.ToggleLike(ctx, userID, post.ID)
				} else {
					err = r.engagement.CreateComment(ctx, &domain.Comment{
						PostID: post.ID, AuthorID: userID, Content: "hi", Status: domain.CommentStatusApproved,
					})
				}
				if err != nil {
					assert.ErrorIs(t, err, repository.ErrPostNotFound)
				}
			}(i, userID)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			assert.NoError(t, r.posts.Delete(ctx, post.ID))
		}()

		close(start)
		wg.Wait()

		assert.Zero(t, r.children(t, post.ID), "round %d", round)
	}
}

// children counts like and comment rows still pointing at postID.
func (r *repos) children(t *testing.T, postID string) int64 {
	t.Helper()
	var likes, comments int64
	require.NoError(t, r.db.Model(&domain.LikeModel{}).Where("post_id = ?", postID).Count(&likes).Error)
	require.NoError(t, r.db.Model(&domain.CommentModel{}).Where("post_id = ?", postID).Count(&comments).Error)
	return likes + comments
}

func TestTotals(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	now := time.Now().UTC()

	old := r.published(t, author.ID, "old", now.Add(-60*24*time.Hour))
	recent := r.published(t, author.ID, "recent", now.Add(-24*time.Hour))
	require.NoError(t, r.db.Model(&domain.PostModel{}).Where("id = ?", old.ID).UpdateColumn("view_count", 60).Error)
	require.NoError(t, r.db.Model(&domain.PostModel{}).Where("id = ?", recent.ID).UpdateColumn("view_count", 40).Error)

	all, err := r.posts.Totals(ctx, author.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), all.Views)

	since := now.Add(-30 * 24 * time.Hour)
	last30, err := r.posts.Totals(ctx, author.ID, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(40), last30.Views)

	none, err := r.posts.Totals(ctx, "nobody", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PostTotals{}, none)
}

func TestToggleLikeIsInvolution(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	reader := r.user(t, "reader")
	post := r.published(t, author.ID, "p", time.Now().UTC())

	state, count, err := r.engagement.ToggleLike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Liked, state)
	assert.Equal(t, int64(1), count)

	liked, err := r.engagement.HasLiked(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	state, count, err = r.engagement.ToggleLike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Unliked, state)
	assert.Equal(t, int64(0), count)

	liked, err = r.engagement.HasLiked(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, _, err = r.engagement.ToggleLike(ctx, reader.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrPostNotFound)
}

func TestConcurrentToggleLikeKeepsCounterConsistent(t *testing.T) {
	backends(t, testConcurrentToggleLike)
}

func testConcurrentToggleLike(t *testing.T, r *repos) {
	ctx := context.Background()
	author := r.user(t, "author")
	post := r.published(t, author.ID, "p", time.Now().UTC())

	const readers = 8
	ids := make([]string, readers)
	for i := range ids {
		ids[i] = r.user(t, fmt.Sprintf("reader-%d", i)).ID
	}

	// Every reader toggles three times: net one like each.
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				_, _, err := r.engagement.ToggleLike(ctx, userID, post.ID)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	var rows int64
	require.NoError(t, r.db.Model(&domain.LikeModel{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	got, err := r.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(readers), rows)
	assert.Equal(t, rows, got.LikeCount)
}

func TestComments(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	author := r.user(t, "author")
	reader := r.user(t, "reader")
	post := r.published(t, author.ID, "p", time.Now().UTC())
	base := time.Now().UTC().Add(-time.Hour)

	for i, status := range []domain.CommentStatus{
		domain.CommentStatusApproved,
		domain.CommentStatusApproved,
		domain.CommentStatusPending,
	} {
		require.NoError(t, r.engagement.CreateComment(ctx, &domain.Comment{
			PostID:    post.ID,
			AuthorID:  reader.ID,
			Content:   fmt.Sprintf("c%d", i),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	err := r.engagement.CreateComment(ctx, &domain.Comment{PostID: "missing", AuthorID: reader.ID, Content: "x", Status: domain.CommentStatusApproved})
	assert.ErrorIs(t, err, repository.ErrPostNotFound)

	list, err := r.engagement.ListComments(ctx, post.ID, domain.CommentStatusApproved, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].Content)
	assert.Equal(t, "c0", list[1].Content)

	count, err := r.engagement.CountCommentsForAuthor(ctx, author.ID, domain.CommentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, r.engagement.DeleteComment(ctx, list[0].ID))
	_, err = r.engagement.GetComment(ctx, list[0].ID)
	assert.ErrorIs(t, err, repository.ErrCommentNotFound)
	assert.ErrorIs(t, r.engagement.DeleteComment(ctx, list[0].ID), repository.ErrCommentNotFound)
}

func TestFollowToggle(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	ada := r.user(t, "ada")
	grace := r.user(t, "grace")

	baseline, err := r.follows.GetFollowersCount(ctx, grace.ID)
	require.NoError(t, err)

	state, err := r.follows.Toggle(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Followed, state)

	following, err := r.follows.IsFollowing(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.True(t, following)

	ids, err := r.follows.FollowingIDs(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{grace.ID}, ids)

	state, err = r.follows.Toggle(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Unfollowed, state)

	count, err := r.follows.GetFollowersCount(ctx, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, baseline, count)

	following, err = r.follows.IsFollowing(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// Refollow restores the soft-deleted row.
	state, err = r.follows.Toggle(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Followed, state)

	var rows int64
	require.NoError(t, r.db.Unscoped().Model(&domain.FollowModel{}).
		Where("follower_id = ? AND following_id = ?", ada.ID, grace.ID).
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	followers, err := r.follows.ListFollowers(ctx, grace.ID, 10)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, ada.ID, followers[0].FollowerID)

	_, err = r.follows.Toggle(ctx, ada.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
