package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/database"
)

// GormEngagementRepository implements EngagementRepository using GORM.
type GormEngagementRepository struct {
	db *gorm.DB
}

// NewGormEngagementRepository creates a new GORM-based engagement repository.
func NewGormEngagementRepository(db *gorm.DB) *GormEngagementRepository {
	return &GormEngagementRepository{db: db}
}

// ToggleLike flips the like for (userID, postID) and moves posts.like_count
// in the same transaction. The post row is locked first so concurrent
// toggles on one post serialize; uidx_likes_user_post is the backstop.
func (r *GormEngagementRepository) ToggleLike(ctx context.Context, userID, postID string) (domain.LikeResult, int64, error) {
	var (
		state domain.LikeResult
		count int64
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.PostModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", postID).
			First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		// Step 1: an existing like is removed.
		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&domain.LikeModel{})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected > 0 {
			if err := tx.Model(&domain.PostModel{}).
				Where("id = ? AND like_count > 0", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error; err != nil {
				return err
			}
			state = domain.Unliked
		} else {
			// Step 2: no like yet, insert one.
			like := domain.LikeModel{
				ID:     uuid.New().String(),
				UserID: userID,
				PostID: postID,
			}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.PostModel{}).
				Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
				return err
			}
			state = domain.Liked
		}

		// Step 3: read back the counter written above.
		var after domain.PostModel
		if err := tx.Select("like_count").Where("id = ?", postID).First(&after).Error; err != nil {
			return err
		}
		count = after.LikeCount
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return "", 0, ErrLikeExists
		}
		return "", 0, err
	}
	return state, count, nil
}

func (r *GormEngagementRepository) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.LikeModel{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateComment inserts comment while holding a share lock on its post.
// Comments on one post do not block each other; a concurrent post Delete
// waits for the insert to commit, or the insert sees ErrPostNotFound.
func (r *GormEngagementRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.PostModel
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").
			Where("id = ?", comment.PostID).
			First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		model := domain.CommentModel{
			ID:        comment.ID,
			PostID:    comment.PostID,
			AuthorID:  comment.AuthorID,
			Content:   comment.Content,
			Status:    string(comment.Status),
			CreatedAt: comment.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		comment.CreatedAt = model.CreatedAt
		return nil
	})
}

func (r *GormEngagementRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	var model domain.CommentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormEngagementRepository) DeleteComment(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.CommentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// ListComments returns comments on postID with the given status, newest first.
func (r *GormEngagementRepository) ListComments(ctx context.Context, postID string, status domain.CommentStatus, limit int) ([]*domain.Comment, error) {
	tx := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, string(status)).
		Order("created_at DESC").
		Order("id")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var models []domain.CommentModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}

	comments := make([]*domain.Comment, 0, len(models))
	for i := range models {
		comments = append(comments, models[i].ToDomain())
	}
	return comments, nil
}

func (r *GormEngagementRepository) CountCommentsForAuthor(ctx context.Context, authorID string, status domain.CommentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CommentModel{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.author_id = ? AND comments.status = ?", authorID, string(status)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure interface is satisfied at compile time.
var _ EngagementRepository = (*GormEngagementRepository)(nil)
