package service

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/quill/internal/audit"
	"github.com/weiawesome/quill/internal/config"
	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
	"github.com/weiawesome/quill/pkg/pubsub"
)

// engagementServiceImpl implements EngagementService.
type engagementServiceImpl struct {
	engagement repository.EngagementRepository
	posts      repository.PostRepository
	identity   IdentityService
	publisher  pubsub.Publisher
	limits     config.FeedConfig
	now        func() time.Time
}

// NewEngagementService creates a new engagement service.
func NewEngagementService(
	engagement repository.EngagementRepository,
	posts repository.PostRepository,
	identity IdentityService,
	publisher pubsub.Publisher,
	limits config.FeedConfig,
) EngagementService {
	return &engagementServiceImpl{
		engagement: engagement,
		posts:      posts,
		identity:   identity,
		publisher:  publisher,
		limits:     limits,
		now:        utcNow,
	}
}

// ToggleLike likes the post when the actor has not liked it and unlikes it otherwise.
func (s *engagementServiceImpl) ToggleLike(ctx context.Context, actor *domain.User, postID string) (domain.LikeResult, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	l := log.Ctx(ctx)

	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return "", err
	}

	state, count, err := s.engagement.ToggleLike(ctx, actor.ID, postID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			return "", ErrNotFound
		case errors.Is(err, repository.ErrLikeExists):
			return "", ErrConflict
		}
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to toggle like")
		return "", err
	}

	metrics.RecordOperation("like", string(state))
	publishEvent(ctx, s.publisher, pubsub.ChannelEngagement, pubsub.EventLikeToggled, postID, actor.ID, pubsub.LikeToggledPayload{
		PostID:    postID,
		UserID:    actor.ID,
		State:     string(state),
		LikeCount: count,
	})

	return state, nil
}

func (s *engagementServiceImpl) HasLiked(ctx context.Context, actor *domain.User, postID string) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}
	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return false, err
	}

	liked, err := s.engagement.HasLiked(ctx, actor.ID, postID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to check like")
		return false, err
	}
	return liked, nil
}

// AddComment stores an approved comment on postID.
func (s *engagementServiceImpl) AddComment(ctx context.Context, actor *domain.User, postID, content string) (*domain.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	l := log.Ctx(ctx)

	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID:    postID,
		AuthorID:  actor.ID,
		Content:   content,
		Status:    domain.CommentStatusApproved,
		CreatedAt: s.now(),
	}
	if err := s.engagement.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrNotFound
		}
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to add comment")
		return nil, err
	}

	metrics.RecordOperation("comment", "added")
	publishEvent(ctx, s.publisher, pubsub.ChannelEngagement, pubsub.EventCommentAdded, postID, actor.ID, pubsub.CommentPayload{
		CommentID: comment.ID,
		PostID:    postID,
		AuthorID:  actor.ID,
	})

	return comment, nil
}

// DeleteComment removes a comment. The comment's author and the post's author may do this.
func (s *engagementServiceImpl) DeleteComment(ctx context.Context, actor *domain.User, commentID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	l := log.Ctx(ctx).With().Str(log.FieldCommentID, commentID).Logger()

	comment, err := s.engagement.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return ErrNotFound
		}
		l.Error().Err(err).Msg("failed to get comment")
		return err
	}

	if comment.AuthorID != actor.ID {
		post, err := s.posts.GetByID(ctx, comment.PostID)
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			return ErrUnauthorized
		case err != nil:
			l.Error().Err(err).Str(log.FieldPostID, comment.PostID).Msg("failed to get post for comment")
			return err
		case post.AuthorID != actor.ID:
			return ErrUnauthorized
		}
	}

	if err := s.engagement.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return ErrNotFound
		}
		l.Error().Err(err).Msg("failed to delete comment")
		return err
	}

	metrics.RecordOperation("comment", "removed")
	audit.LogTarget(ctx, audit.ActionDeleteComment, actor.ID, commentID, "comment deleted")
	publishEvent(ctx, s.publisher, pubsub.ChannelEngagement, pubsub.EventCommentRemoved, comment.PostID, actor.ID, pubsub.CommentPayload{
		CommentID: commentID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
	})

	return nil
}

// ListComments returns approved comments, newest first, with their authors.
// actor may be nil for anonymous readers.
func (s *engagementServiceImpl) ListComments(ctx context.Context, actor *domain.User, postID string, limit int) ([]domain.CommentView, error) {
	l := log.Ctx(ctx)

	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return nil, err
	}

	comments, err := s.engagement.ListComments(ctx, postID, domain.CommentStatusApproved,
		clampLimit(limit, s.limits.MaxLimit, s.limits.MaxLimit))
	if err != nil {
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to list comments")
		return nil, err
	}
	if len(comments) == 0 {
		return []domain.CommentView{}, nil
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	profiles, err := s.identity.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]domain.CommentView, 0, len(comments))
	for _, c := range comments {
		author, ok := profiles[c.AuthorID]
		if !ok {
			continue
		}
		views = append(views, domain.CommentView{Comment: *c, Author: author})
	}
	return views, nil
}

// IncrementView counts one view on a live post. Repeat views by the same
// reader all count.
func (s *engagementServiceImpl) IncrementView(ctx context.Context, postID string) error {
	if _, err := s.visiblePost(ctx, nil, postID); err != nil {
		return err
	}
	if err := s.posts.IncrementViews(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to increment views")
		return err
	}
	return nil
}

// visiblePost loads postID if actor may engage with it: the post is live, or
// actor wrote it. Anything else is ErrNotFound so drafts and scheduled posts
// stay hidden.
func (s *engagementServiceImpl) visiblePost(ctx context.Context, actor *domain.User, postID string) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to get post")
		return nil, err
	}

	isOwner := actor != nil && actor.ID == post.AuthorID
	if !isOwner && !post.IsLive(s.now()) {
		return nil, ErrNotFound
	}
	return post, nil
}

// Ensure interface is satisfied at compile time.
var _ EngagementService = (*engagementServiceImpl)(nil)
