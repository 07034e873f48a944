package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/database"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Toggle follows followingID when no active edge exists and unfollows otherwise.
// Unfollow soft-deletes the row (CDC emits "u" with deleted_at set); a
// later follow restores that row rather than inserting another one.
func (r *GormFollowRepository) Toggle(ctx context.Context, followerID, followingID string) (domain.FollowResult, error) {
	var state domain.FollowResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Step 1: lock the target so toggles against one user serialize.
		var target domain.UserModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", followingID).
			First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Step 2: an active edge is soft-deleted.
		result := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Delete(&domain.FollowModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			state = domain.Unfollowed
			return nil
		}

		// Step 3: restore the most recent soft-deleted edge, if any.
		var previous domain.FollowModel
		err := tx.Unscoped().
			Where("follower_id = ? AND following_id = ? AND deleted_at IS NOT NULL", followerID, followingID).
			Order("id DESC").
			First(&previous).Error
		switch {
		case err == nil:
			if err := tx.Unscoped().Model(&domain.FollowModel{}).
				Where("id = ?", previous.ID).
				Updates(map[string]interface{}{
					"deleted_at": nil,
					"created_at": tx.NowFunc(),
				}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Step 4: first follow for this pair.
			model := domain.FollowModel{
				FollowerID:  followerID,
				FollowingID: followingID,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		default:
			return err
		}

		state = domain.Followed
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return "", ErrAlreadyFollowing
		}
		return "", err
	}
	return state, nil
}

// IsFollowing checks if followerID follows followingID.
func (r *GormFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFollowersCount returns the number of active followers of userID.
func (r *GormFollowRepository) GetFollowersCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("following_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListFollowers returns the active edges pointing at userID, most recent first.
func (r *GormFollowRepository) ListFollowers(ctx context.Context, userID string, limit int) ([]*domain.Follow, error) {
	return r.list(ctx, "following_id = ?", userID, limit)
}

// ListFollowing returns the active edges leaving userID, most recent first.
func (r *GormFollowRepository) ListFollowing(ctx context.Context, userID string, limit int) ([]*domain.Follow, error) {
	return r.list(ctx, "follower_id = ?", userID, limit)
}

func (r *GormFollowRepository) list(ctx context.Context, query, userID string, limit int) ([]*domain.Follow, error) {
	tx := r.db.WithContext(ctx).
		Where(query, userID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var models []domain.FollowModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}

	follows := make([]*domain.Follow, 0, len(models))
	for i := range models {
		follows = append(follows, models[i].ToDomain())
	}
	return follows, nil
}

// FollowingIDs returns the ids of every user followerID actively follows.
func (r *GormFollowRepository) FollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ?", followerID).
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure interface is satisfied at compile time.
var _ FollowRepository = (*GormFollowRepository)(nil)
