package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/quill/internal/audit"
	"github.com/weiawesome/quill/internal/cache"
	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
)

// identityServiceImpl implements IdentityService.
type identityServiceImpl struct {
	users      repository.UserRepository
	profiles   cache.ProfileCache
	profileTTL time.Duration
	sf         singleflight.Group
}

// NewIdentityService creates a new identity service.
func NewIdentityService(users repository.UserRepository, profiles cache.ProfileCache, profileTTL time.Duration) IdentityService {
	return &identityServiceImpl{
		users:      users,
		profiles:   profiles,
		profileTTL: profileTTL,
	}
}

// Resolve looks the caller up by token identifier and provisions a user on
// first contact. Concurrent first requests for one token share a single
// lookup; a lost insert race re-reads the winning row.
func (s *identityServiceImpl) Resolve(ctx context.Context, identity *domain.Identity) (*domain.User, error) {
	if identity == nil || strings.TrimSpace(identity.TokenIdentifier) == "" {
		return nil, ErrUnauthenticated
	}
	tokenID := identity.TokenIdentifier

	result, err, _ := s.sf.Do(tokenID, func() (interface{}, error) {
		// Shared by every waiter; one caller going away must not fail the rest.
		ctx := context.WithoutCancel(ctx)
		l := log.Ctx(ctx)

		user, err := s.users.GetByTokenIdentifier(ctx, tokenID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			l.Error().Err(err).Msg("failed to look up user by token identifier")
			return nil, err
		}

		user = newUserFromIdentity(identity)
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrUserExists) {
				return s.users.GetByTokenIdentifier(ctx, tokenID)
			}
			l.Error().Err(err).Msg("failed to provision user")
			return nil, err
		}

		l.Info().Str(log.FieldUserID, user.ID).Msg("provisioned user on first contact")
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

func newUserFromIdentity(identity *domain.Identity) *domain.User {
	id := uuid.New().String()

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = "Writer " + id[:8]
	}

	user := &domain.User{
		ID:              id,
		TokenIdentifier: identity.TokenIdentifier,
		Name:            name,
		Email:           strings.TrimSpace(identity.Email),
	}
	if pic := strings.TrimSpace(identity.Picture); pic != "" {
		user.AvatarURL = &pic
	}
	return user
}

func (s *identityServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.AuthorProfile, error) {
	l := log.Ctx(ctx)

	cached, err := s.profiles.Get(ctx, userID)
	if err == nil {
		metrics.RecordCacheLookup("profile", true)
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("profile cache get error")
	}
	metrics.RecordCacheLookup("profile", false)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get user")
		return nil, err
	}

	profile := user.Profile()
	s.cacheProfile(ctx, &profile)
	return &profile, nil
}

// GetProfiles resolves profiles from cache first and batches the misses into one query.
func (s *identityServiceImpl) GetProfiles(ctx context.Context, ids []string) (map[string]domain.AuthorProfile, error) {
	l := log.Ctx(ctx)
	out := make(map[string]domain.AuthorProfile, len(ids))

	var misses []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		cached, err := s.profiles.Get(ctx, id)
		if err == nil {
			out[id] = *cached
			continue
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Str(log.FieldUserID, id).Msg("profile cache get error")
		}
		misses = append(misses, id)
	}
	metrics.RecordCacheLookup("profile", len(misses) == 0)

	if len(misses) == 0 {
		return out, nil
	}

	users, err := s.users.GetByIDs(ctx, misses)
	if err != nil {
		l.Error().Err(err).Int("count", len(misses)).Msg("failed to batch get users")
		return nil, err
	}
	for _, u := range users {
		profile := u.Profile()
		out[u.ID] = profile
		s.cacheProfile(ctx, &profile)
	}

	return out, nil
}

func (s *identityServiceImpl) cacheProfile(ctx context.Context, profile *domain.AuthorProfile) {
	if err := s.profiles.Set(ctx, profile, s.profileTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, profile.ID).Msg("profile cache set error")
	}
}

// UpdateHandle sets the actor's public handle. Handles compare exactly,
// so "Ada" and "ada" are different handles.
func (s *identityServiceImpl) UpdateHandle(ctx context.Context, actor *domain.User, raw string) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	l := log.Ctx(ctx)

	handle, err := validateHandle(raw)
	if err != nil {
		return nil, err
	}

	if actor.Handle != nil && *actor.Handle == handle {
		return actor, nil
	}

	owner, err := s.users.GetByHandle(ctx, handle)
	switch {
	case err == nil && owner.ID != actor.ID:
		return nil, ErrConflict
	case err == nil:
		return owner, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		l.Error().Err(err).Str(log.FieldHandle, handle).Msg("failed to look up handle")
		return nil, err
	}

	if err := s.users.UpdateHandle(ctx, actor.ID, handle); err != nil {
		switch {
		case errors.Is(err, repository.ErrHandleTaken):
			return nil, ErrConflict
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrNotFound
		}
		l.Error().Err(err).Str(log.FieldHandle, handle).Msg("failed to update handle")
		return nil, err
	}

	if err := s.profiles.Delete(ctx, actor.ID); err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, actor.ID).Msg("profile cache delete error")
	}

	audit.LogWithDetail(ctx, audit.ActionHandleChange, actor.ID, handle, "handle updated")

	updated := *actor
	updated.Handle = &handle
	return &updated, nil
}

func (s *identityServiceImpl) GetByHandle(ctx context.Context, handle string) (*domain.AuthorProfile, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrNotFound
	}

	user, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldHandle, handle).Msg("failed to get user by handle")
		return nil, err
	}

	profile := user.Profile()
	return &profile, nil
}

// Ensure interface is satisfied at compile time.
var _ IdentityService = (*identityServiceImpl)(nil)
