package repository

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/quill/internal/domain"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrHandleTaken      = errors.New("handle already taken")
	ErrPostNotFound     = errors.New("post not found")
	ErrDraftExists      = errors.New("author already has a draft")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrLikeExists       = errors.New("like already exists")
	ErrAlreadyFollowing = errors.New("already following")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*domain.User, error)
	GetByHandle(ctx context.Context, handle string) (*domain.User, error)
	UpdateHandle(ctx context.Context, id, handle string) error
	// ListExcluding returns up to limit users not in excludeIDs, newest first.
	ListExcluding(ctx context.Context, excludeIDs []string, limit int) ([]*domain.User, error)
}

// LiveQuery selects published posts visible at Now.
type LiveQuery struct {
	Now      time.Time
	AuthorID string     // optional
	Since    *time.Time // optional lower bound on published_at
	ByViews  bool       // order by view_count instead of published_at
	Limit    int
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// GetDraft returns the author's draft or ErrPostNotFound.
	GetDraft(ctx context.Context, authorID string) (*domain.Post, error)
	// UpsertDraft patches the author's draft in place or inserts one.
	// On return post.ID and post.CreatedAt reflect the stored row.
	UpsertDraft(ctx context.Context, post *domain.Post) (created bool, err error)
	// Publish converts the author's draft into post, or inserts post when
	// no draft exists. Returns whether a draft was converted.
	Publish(ctx context.Context, post *domain.Post) (fromDraft bool, err error)
	// Update overwrites the editable fields of an existing post.
	Update(ctx context.Context, post *domain.Post) error
	// Delete removes the post together with its likes and comments.
	Delete(ctx context.Context, id string) error
	ListByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error)
	ListLive(ctx context.Context, q LiveQuery) ([]*domain.Post, error)
	IncrementViews(ctx context.Context, id string) error
	// Totals sums view and like counters over the author's posts,
	// restricted to posts created at or after createdSince when non-nil.
	Totals(ctx context.Context, authorID string, createdSince *time.Time) (domain.PostTotals, error)
}

// EngagementRepository defines persistence operations for likes and comments.
type EngagementRepository interface {
	// ToggleLike flips the (user, post) like and moves like_count with it.
	ToggleLike(ctx context.Context, userID, postID string) (domain.LikeResult, int64, error)
	HasLiked(ctx context.Context, userID, postID string) (bool, error)
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context, postID string, status domain.CommentStatus, limit int) ([]*domain.Comment, error)
	// CountCommentsForAuthor counts comments with status across all posts by authorID.
	CountCommentsForAuthor(ctx context.Context, authorID string, status domain.CommentStatus) (int64, error)
}

// FollowRepository defines persistence operations for follow relationships.
type FollowRepository interface {
	// Toggle follows or unfollows followingID. Returns ErrUserNotFound when the target does not exist.
	Toggle(ctx context.Context, followerID, followingID string) (domain.FollowResult, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetFollowersCount(ctx context.Context, userID string) (int64, error)
	ListFollowers(ctx context.Context, userID string, limit int) ([]*domain.Follow, error)
	ListFollowing(ctx context.Context, userID string, limit int) ([]*domain.Follow, error)
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
}
