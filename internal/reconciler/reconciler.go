// Package reconciler keeps cached follower counts of the most read profiles
// in line with the follows table.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/weiawesome/quill/internal/config"
	"github.com/weiawesome/quill/internal/repository"
	"github.com/weiawesome/quill/internal/store"
	pkglog "github.com/weiawesome/quill/pkg/log"
)

const (
	defaultInterval = time.Minute
	defaultTopN     = 100
)

// Reconciler rewrites the follower counts of the hottest profiles from the
// database on every tick, then starts a fresh popularity window.
type Reconciler struct {
	store    store.FollowStore
	repo     repository.FollowRepository
	interval time.Duration
	topN     int64

	stopOnce sync.Once
	quit     chan struct{}
	doneCh   chan struct{}
}

// New creates a Reconciler. Non-positive settings fall back to one minute and 100 keys.
func New(store store.FollowStore, repo repository.FollowRepository, cfg config.ReconcilerConfig) *Reconciler {
	r := &Reconciler{
		store:    store,
		repo:     repo,
		interval: cfg.Interval,
		topN:     int64(cfg.TopN),
		quit:     make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if r.interval <= 0 {
		r.interval = defaultInterval
	}
	if r.topN <= 0 {
		r.topN = defaultTopN
	}
	return r
}

// Start runs the reconciler in the background until Stop is called or ctx ends.
func (r *Reconciler) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop asks the loop to exit. It does not wait; use Done for that.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once the loop has exited.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil {
				l := pkglog.L()
				l.Error().Err(err).Msg("reconciler: pass failed")
			}
		}
	}
}

// Reconcile performs one pass and returns how many counts were refreshed.
// A failure on one profile is logged and skipped; the popularity window is
// only reset when the hot-key list could be read.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	l := pkglog.L()

	userIDs, err := r.store.GetTopHotKeys(ctx, r.topN)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		l.Debug().Msg("reconciler: no hot profiles")
		return 0, nil
	}

	refreshed := 0
	for _, userID := range userIDs {
		count, err := r.repo.GetFollowersCount(ctx, userID)
		if err != nil {
			l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("reconciler: failed to count followers")
			continue
		}
		if err := r.store.SetFollowersCount(ctx, userID, count); err != nil {
			l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("reconciler: failed to store followers count")
			continue
		}
		refreshed++
	}

	if err := r.store.ResetHotKeyScores(ctx); err != nil {
		l.Warn().Err(err).Msg("reconciler: failed to reset hot key scores")
	}

	l.Info().Int("hot", len(userIDs)).Int("refreshed", refreshed).Msg("reconciler: pass complete")
	return refreshed, nil
}
