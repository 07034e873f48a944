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

// postServiceImpl implements PostService.
type postServiceImpl struct {
	posts     repository.PostRepository
	identity  IdentityService
	publisher pubsub.Publisher
	limits    config.FeedConfig
	now       func() time.Time
}

// NewPostService creates a new post service.
func NewPostService(posts repository.PostRepository, identity IdentityService, publisher pubsub.Publisher, limits config.FeedConfig) PostService {
	return &postServiceImpl{
		posts:     posts,
		identity:  identity,
		publisher: publisher,
		limits:    limits,
		now:       utcNow,
	}
}

// SaveDraft overwrites the actor's single draft, creating it if needed.
func (s *postServiceImpl) SaveDraft(ctx context.Context, actor *domain.User, input *domain.PostInput) (string, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	l := log.Ctx(ctx)

	fields, err := normalizeInput(input)
	if err != nil {
		return "", err
	}

	now := s.now()
	post := &domain.Post{
		AuthorID:     actor.ID,
		Status:       domain.PostStatusDraft,
		ScheduledFor: utcPtr(input.ScheduledFor),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fields.applyTo(post)

	created, err := s.posts.UpsertDraft(ctx, post)
	if err != nil {
		if errors.Is(err, repository.ErrDraftExists) {
			return "", ErrConflict
		}
		l.Error().Err(err).Msg("failed to save draft")
		return "", err
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	metrics.RecordOperation("save_draft", outcome)

	return post.ID, nil
}

// Publish promotes the actor's draft, or creates a new published post when
// there is no draft. A future ScheduledFor keeps the post hidden until then.
func (s *postServiceImpl) Publish(ctx context.Context, actor *domain.User, input *domain.PostInput) (string, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	l := log.Ctx(ctx)

	fields, err := normalizeInput(input)
	if err != nil {
		return "", err
	}

	now := s.now()
	post := &domain.Post{
		AuthorID:     actor.ID,
		Status:       domain.PostStatusPublished,
		ScheduledFor: utcPtr(input.ScheduledFor),
		PublishedAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fields.applyTo(post)

	fromDraft, err := s.posts.Publish(ctx, post)
	if err != nil {
		l.Error().Err(err).Msg("failed to publish post")
		return "", err
	}

	metrics.RecordOperation("publish", "ok")
	audit.LogTarget(ctx, audit.ActionPublish, actor.ID, post.ID, "post published")

	payload := pubsub.PostPublishedPayload{
		PostID:    post.ID,
		AuthorID:  actor.ID,
		Title:     post.Title,
		FromDraft: fromDraft,
		Category:  post.Category,
	}
	if post.ScheduledFor != nil {
		ms := post.ScheduledFor.UnixMilli()
		payload.ScheduledFor = &ms
	}
	publishEvent(ctx, s.publisher, pubsub.ChannelPosts, pubsub.EventPostPublished, post.ID, actor.ID, payload)

	return post.ID, nil
}

// Update applies the supplied fields of patch. Status and PublishedAt never change here.
func (s *postServiceImpl) Update(ctx context.Context, actor *domain.User, postID string, patch *domain.PostPatch) (string, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	l := log.Ctx(ctx).With().Str(log.FieldPostID, postID).Logger()

	post, err := s.ownedPost(ctx, actor, postID)
	if err != nil {
		return "", err
	}

	if patch != nil {
		patch.Apply(post)
	}
	fields, err := normalizePost(post.Title, post.Content, post.Category, post.Tags, post.FeaturedImage)
	if err != nil {
		return "", err
	}
	fields.applyTo(post)
	post.ScheduledFor = utcPtr(post.ScheduledFor)
	post.UpdatedAt = s.now()

	if err := s.posts.Update(ctx, post); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return "", ErrNotFound
		}
		l.Error().Err(err).Msg("failed to update post")
		return "", err
	}

	metrics.RecordOperation("update", "ok")
	publishEvent(ctx, s.publisher, pubsub.ChannelPosts, pubsub.EventPostUpdated, post.ID, actor.ID, pubsub.PostUpdatedPayload{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Status:   string(post.Status),
	})

	return post.ID, nil
}

// Delete removes the post along with its likes and comments.
func (s *postServiceImpl) Delete(ctx context.Context, actor *domain.User, postID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	l := log.Ctx(ctx).With().Str(log.FieldPostID, postID).Logger()

	post, err := s.ownedPost(ctx, actor, postID)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return ErrNotFound
		}
		l.Error().Err(err).Msg("failed to delete post")
		return err
	}

	metrics.RecordOperation("delete", "ok")
	audit.LogTarget(ctx, audit.ActionDeletePost, actor.ID, post.ID, "post deleted")
	publishEvent(ctx, s.publisher, pubsub.ChannelPosts, pubsub.EventPostDeleted, post.ID, actor.ID, pubsub.PostDeletedPayload{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
	})

	return nil
}

// ownedPost loads postID and checks the actor wrote it.
func (s *postServiceImpl) ownedPost(ctx context.Context, actor *domain.User, postID string) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to get post")
		return nil, err
	}
	if post.AuthorID != actor.ID {
		return nil, ErrUnauthorized
	}
	return post, nil
}

func (s *postServiceImpl) GetDraft(ctx context.Context, actor *domain.User) (*domain.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	draft, err := s.posts.GetDraft(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, nil
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to get draft")
		return nil, err
	}
	return draft, nil
}

func (s *postServiceImpl) GetPost(ctx context.Context, actor *domain.User, postID string) (*domain.PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to get post")
		return nil, err
	}

	now := s.now()
	isOwner := actor != nil && actor.ID == post.AuthorID
	if !isOwner && !post.IsLive(now) {
		return nil, ErrNotFound
	}

	views, err := enrichPosts(ctx, s.identity, []*domain.Post{post}, now)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNotFound
	}
	return &views[0], nil
}

// ListMine returns every post by the actor in any state, most recently edited first.
func (s *postServiceImpl) ListMine(ctx context.Context, actor *domain.User) ([]domain.PostView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByAuthor(ctx, actor.ID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list own posts")
		return nil, err
	}

	now := s.now()
	author := actor.Profile()
	views := make([]domain.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, domain.PostView{
			Post:       *p,
			Visibility: domain.VisibilityState(p, now),
			Author:     author,
		})
	}
	return views, nil
}

func (s *postServiceImpl) ListPublishedByHandle(ctx context.Context, handle string, limit int) ([]domain.PostView, error) {
	author, err := s.identity.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	now := s.now()
	posts, err := s.posts.ListLive(ctx, repository.LiveQuery{
		Now:      now,
		AuthorID: author.ID,
		Limit:    clampLimit(limit, s.limits.AuthorPostsLimit, s.limits.MaxLimit),
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldHandle, handle).Msg("failed to list author posts")
		return nil, err
	}

	views := make([]domain.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, domain.PostView{Post: *p, Visibility: domain.VisibilityLive, Author: *author})
	}
	return views, nil
}

func (s *postServiceImpl) GetPublishedByHandle(ctx context.Context, handle, postID string) (*domain.PostView, error) {
	author, err := s.identity.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to get post")
		return nil, err
	}

	if post.AuthorID != author.ID || !post.IsLive(s.now()) {
		return nil, ErrNotFound
	}
	return &domain.PostView{Post: *post, Visibility: domain.VisibilityLive, Author: *author}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Ensure interface is satisfied at compile time.
var _ PostService = (*postServiceImpl)(nil)
