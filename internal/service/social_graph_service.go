package service

import (
	"context"
	"errors"

	"github.com/weiawesome/quill/internal/config"
	"github.com/weiawesome/quill/internal/consumer"
	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/internal/store"
	pkglog "github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
	"github.com/weiawesome/quill/pkg/pubsub"
)

// socialGraphService implements SocialGraphService.
type socialGraphService struct {
	repo      repository.FollowRepository
	store     store.FollowStore
	identity  IdentityService
	publisher pubsub.Publisher
	limits    config.FeedConfig
}

// NewSocialGraphService creates a new SocialGraphService instance.
func NewSocialGraphService(
	repo repository.FollowRepository,
	store store.FollowStore,
	identity IdentityService,
	publisher pubsub.Publisher,
	limits config.FeedConfig,
) SocialGraphService {
	return &socialGraphService{
		repo:      repo,
		store:     store,
		identity:  identity,
		publisher: publisher,
		limits:    limits,
	}
}

// ToggleFollow follows targetID if the actor does not follow them yet and unfollows otherwise.
func (s *socialGraphService) ToggleFollow(ctx context.Context, actor *domain.User, targetID string) (domain.FollowResult, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	if actor.ID == targetID {
		return "", invalid("user_id", "cannot follow yourself")
	}
	l := pkglog.Ctx(ctx)

	state, err := s.repo.Toggle(ctx, actor.ID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return "", ErrNotFound
		case errors.Is(err, repository.ErrAlreadyFollowing):
			return "", ErrConflict
		}
		l.Error().Err(err).
			Str("follower_id", actor.ID).
			Str("following_id", targetID).
			Msg("failed to toggle follow")
		return "", err
	}

	// Best-effort: the next read repopulates from the database.
	if err := s.store.InvalidateFollowersCount(ctx, targetID); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldTargetID, targetID).Msg("failed to invalidate followers count")
	}

	metrics.RecordOperation("follow", string(state))
	publishEvent(ctx, s.publisher, pubsub.ChannelGraph, pubsub.EventFollowToggled, targetID, actor.ID, pubsub.FollowToggledPayload{
		FollowerID:  actor.ID,
		FollowingID: targetID,
		State:       string(state),
	})

	return state, nil
}

func (s *socialGraphService) IsFollowing(ctx context.Context, actor *domain.User, targetID string) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}
	return s.repo.IsFollowing(ctx, actor.ID, targetID)
}

// FollowerCount returns the number of followers for userID.
// It checks Redis first; on miss it queries the DB, populates Redis, and records a hot key access.
func (s *socialGraphService) FollowerCount(ctx context.Context, userID string) (int64, error) {
	l := pkglog.Ctx(ctx)

	// Always record access for hot key tracking (best-effort)
	if err := s.store.RecordAccess(ctx, userID); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to record hot key access")
	}

	count, found, err := s.store.GetFollowersCount(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("redis get followers count failed, falling back to db")
	}
	metrics.RecordCacheLookup("followers", found)
	if found {
		return count, nil
	}

	count, err = s.repo.GetFollowersCount(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to get followers count from db")
		return 0, err
	}

	if err := s.store.SetFollowersCount(ctx, userID, count); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to set followers count in redis")
	}

	return count, nil
}

func (s *socialGraphService) ListFollowers(ctx context.Context, userID string, limit int) ([]domain.AuthorProfile, error) {
	follows, err := s.repo.ListFollowers(ctx, userID, clampLimit(limit, s.limits.MaxLimit, s.limits.MaxLimit))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowerID)
	}
	return s.orderedProfiles(ctx, ids)
}

func (s *socialGraphService) ListFollowing(ctx context.Context, userID string, limit int) ([]domain.AuthorProfile, error) {
	follows, err := s.repo.ListFollowing(ctx, userID, clampLimit(limit, s.limits.MaxLimit, s.limits.MaxLimit))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowingID)
	}
	return s.orderedProfiles(ctx, ids)
}

// orderedProfiles resolves ids keeping their order and skipping missing users.
func (s *socialGraphService) orderedProfiles(ctx context.Context, ids []string) ([]domain.AuthorProfile, error) {
	out := make([]domain.AuthorProfile, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	profiles, err := s.identity.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if p, ok := profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *socialGraphService) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return s.repo.FollowingIDs(ctx, userID)
}

// HandleCDCEvent drops the cached follower counts touched by a change to
// the follows table. This covers writers other than ToggleFollow, such as
// backfills and manual fixes.
func (s *socialGraphService) HandleCDCEvent(ctx context.Context, event *consumer.DebeziumMessage) error {
	l := pkglog.Ctx(ctx)
	op := event.Payload.Op

	switch op {
	case consumer.OpSnapshot:
		return nil

	case consumer.OpCreate, consumer.OpUpdate, consumer.OpDelete:
		ids := event.AffectedUserIDs()
		if len(ids) == 0 {
			l.Warn().Str("op", op).Msg("CDC event carries no follows row")
			return nil
		}
		if err := s.store.InvalidateFollowersCount(ctx, ids...); err != nil {
			l.Error().Err(err).Strs("following_ids", ids).Msg("failed to invalidate followers count")
			return err
		}

	default:
		l.Warn().Str("op", op).Msg("unknown CDC operation, skipping")
	}

	return nil
}

// Ensure interface is satisfied at compile time.
var _ SocialGraphService = (*socialGraphService)(nil)
