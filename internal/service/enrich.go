package service

import (
	"context"
	"time"

	"github.com/weiawesome/quill/internal/domain"
)

// enrichPosts attaches author profiles and visibility. Posts whose author
// no longer exists are dropped.
func enrichPosts(ctx context.Context, identity IdentityService, posts []*domain.Post, now time.Time) ([]domain.PostView, error) {
	if len(posts) == 0 {
		return []domain.PostView{}, nil
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}

	profiles, err := identity.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]domain.PostView, 0, len(posts))
	for _, p := range posts {
		author, ok := profiles[p.AuthorID]
		if !ok {
			continue
		}
		views = append(views, domain.PostView{
			Post:       *p,
			Visibility: domain.VisibilityState(p, now),
			Author:     author,
		})
	}
	return views, nil
}
