package service

import (
	"context"

	"github.com/weiawesome/quill/internal/consumer"
	"github.com/weiawesome/quill/internal/domain"
)

// IdentityService maps verified identity-provider claims to platform users.
type IdentityService interface {
	// Resolve returns the user for identity, provisioning one on first contact.
	Resolve(ctx context.Context, identity *domain.Identity) (*domain.User, error)
	GetProfile(ctx context.Context, userID string) (*domain.AuthorProfile, error)
	// GetProfiles returns the profiles that exist among ids.
	GetProfiles(ctx context.Context, ids []string) (map[string]domain.AuthorProfile, error)
	UpdateHandle(ctx context.Context, actor *domain.User, handle string) (*domain.User, error)
	GetByHandle(ctx context.Context, handle string) (*domain.AuthorProfile, error)
}

// PostService owns the draft and publish lifecycle of posts.
type PostService interface {
	SaveDraft(ctx context.Context, actor *domain.User, input *domain.PostInput) (string, error)
	Publish(ctx context.Context, actor *domain.User, input *domain.PostInput) (string, error)
	Update(ctx context.Context, actor *domain.User, postID string, patch *domain.PostPatch) (string, error)
	Delete(ctx context.Context, actor *domain.User, postID string) error
	// GetDraft returns nil without error when the actor has no draft.
	GetDraft(ctx context.Context, actor *domain.User) (*domain.Post, error)
	// GetPost shows the author any state and everyone else only live posts. actor may be nil.
	GetPost(ctx context.Context, actor *domain.User, postID string) (*domain.PostView, error)
	ListMine(ctx context.Context, actor *domain.User) ([]domain.PostView, error)
	ListPublishedByHandle(ctx context.Context, handle string, limit int) ([]domain.PostView, error)
	GetPublishedByHandle(ctx context.Context, handle, postID string) (*domain.PostView, error)
}

// EngagementService owns likes, comments and view counters.
type EngagementService interface {
	ToggleLike(ctx context.Context, actor *domain.User, postID string) (domain.LikeResult, error)
	HasLiked(ctx context.Context, actor *domain.User, postID string) (bool, error)
	AddComment(ctx context.Context, actor *domain.User, postID, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, actor *domain.User, commentID string) error
	ListComments(ctx context.Context, actor *domain.User, postID string, limit int) ([]domain.CommentView, error)
	IncrementView(ctx context.Context, postID string) error
}

// SocialGraphService defines the business logic for the social graph.
type SocialGraphService interface {
	ToggleFollow(ctx context.Context, actor *domain.User, targetID string) (domain.FollowResult, error)
	IsFollowing(ctx context.Context, actor *domain.User, targetID string) (bool, error)
	FollowerCount(ctx context.Context, userID string) (int64, error)
	ListFollowers(ctx context.Context, userID string, limit int) ([]domain.AuthorProfile, error)
	ListFollowing(ctx context.Context, userID string, limit int) ([]domain.AuthorProfile, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	HandleCDCEvent(ctx context.Context, event *consumer.DebeziumMessage) error
}

// FeedService composes the reader-facing feed, trending and suggestion lists.
type FeedService interface {
	GetFeed(ctx context.Context, limit int) (*domain.FeedPage, error)
	GetSuggestedUsers(ctx context.Context, actor *domain.User, limit int) ([]domain.AuthorProfile, error)
	GetTrendingPosts(ctx context.Context, limit int) ([]domain.PostView, error)
}

// AnalyticsService summarises engagement for an author.
type AnalyticsService interface {
	GetAnalytics(ctx context.Context, actor *domain.User) (*domain.Analytics, error)
}

// MediaService hands out direct-upload URLs for featured images.
type MediaService interface {
	PresignFeaturedImage(ctx context.Context, actor *domain.User, req *domain.PresignRequest) (*domain.PresignResponse, error)
}
