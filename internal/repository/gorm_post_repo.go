package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/database"
)

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GORM-based post repository.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// editableColumns are the columns an author may overwrite on an existing row.
func editableColumns(post *domain.Post) map[string]interface{} {
	cols := map[string]interface{}{
		"title":          post.Title,
		"content":        post.Content,
		"category":       post.Category,
		"tags":           database.StringArray(post.Tags),
		"featured_image": post.FeaturedImage,
		"scheduled_for":  post.ScheduledFor,
	}
	if !post.UpdatedAt.IsZero() {
		cols["updated_at"] = post.UpdatedAt
	}
	return cols
}

// lockDraft selects the author's draft row FOR UPDATE inside tx.
// Returns gorm.ErrRecordNotFound when the author has no draft.
func lockDraft(tx *gorm.DB, authorID string) (*domain.PostModel, error) {
	var model domain.PostModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("author_id = ? AND status = ?", authorID, string(domain.PostStatusDraft)).
		First(&model).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (r *GormPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var model domain.PostModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormPostRepository) GetDraft(ctx context.Context, authorID string) (*domain.Post, error) {
	var model domain.PostModel
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND status = ?", authorID, string(domain.PostStatusDraft)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertDraft patches the author's draft in place, or inserts a new draft
// when there is none. The draft row lock and the partial unique index on
// (author_id) WHERE status = 'draft' keep the author at one draft.
func (r *GormPostRepository) UpsertDraft(ctx context.Context, post *domain.Post) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockDraft(tx, post.AuthorID)
		switch {
		case err == nil:
			if err := tx.Model(&domain.PostModel{}).
				Where("id = ?", existing.ID).
				Updates(editableColumns(post)).Error; err != nil {
				return err
			}
			post.ID = existing.ID
			post.CreatedAt = existing.CreatedAt
			post.Status = domain.PostStatusDraft
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			post.ID = uuid.New().String()
			post.Status = domain.PostStatusDraft
			post.PublishedAt = nil
			model := domain.PostToModel(post)
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			post.CreatedAt = model.CreatedAt
			post.UpdatedAt = model.UpdatedAt
			created = true
			return nil

		default:
			return err
		}
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, ErrDraftExists
		}
		return false, err
	}
	return created, nil
}

// Publish turns the author's draft into a published post carrying the
// fields of post, or inserts post as a fresh published row.
// post.PublishedAt must be set by the caller.
func (r *GormPostRepository) Publish(ctx context.Context, post *domain.Post) (bool, error) {
	fromDraft := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockDraft(tx, post.AuthorID)
		switch {
		case err == nil:
			cols := editableColumns(post)
			cols["status"] = string(domain.PostStatusPublished)
			cols["published_at"] = post.PublishedAt
			if err := tx.Model(&domain.PostModel{}).
				Where("id = ?", existing.ID).
				Updates(cols).Error; err != nil {
				return err
			}
			post.ID = existing.ID
			post.CreatedAt = existing.CreatedAt
			post.ViewCount = existing.ViewCount
			post.LikeCount = existing.LikeCount
			post.Status = domain.PostStatusPublished
			fromDraft = true
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			post.ID = uuid.New().String()
			post.Status = domain.PostStatusPublished
			model := domain.PostToModel(post)
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			post.CreatedAt = model.CreatedAt
			post.UpdatedAt = model.UpdatedAt
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return fromDraft, nil
}

// Update overwrites the editable fields of the post with post.ID.
// Status and published_at are never touched here.
func (r *GormPostRepository) Update(ctx context.Context, post *domain.Post) error {
	result := r.db.WithContext(ctx).Model(&domain.PostModel{}).
		Where("id = ?", post.ID).
		Updates(editableColumns(post))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Delete removes the post and everything attached to it in one transaction.
// The post row is locked before the child deletes, so ToggleLike and
// CreateComment, which lock the same row, either commit before the cascade
// sees their rows or find the post gone.
func (r *GormPostRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.PostModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", id).
			First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if err := tx.Where("post_id = ?", id).Delete(&domain.LikeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.CommentModel{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&domain.PostModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

// ListByAuthor returns every post by authorID in any state, most recently edited first.
func (r *GormPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	var models []domain.PostModel
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("updated_at DESC").
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return postsToDomain(models), nil
}

// ListLive returns published posts whose schedule has passed at q.Now.
func (r *GormPostRepository) ListLive(ctx context.Context, q LiveQuery) ([]*domain.Post, error) {
	tx := r.db.WithContext(ctx).
		Where("status = ?", string(domain.PostStatusPublished)).
		Where("(scheduled_for IS NULL OR scheduled_for <= ?)", q.Now)

	if q.AuthorID != "" {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	if q.Since != nil {
		tx = tx.Where("published_at >= ?", *q.Since)
	}

	if q.ByViews {
		tx = tx.Order("view_count DESC")
	}
	tx = tx.Order("published_at DESC").Order("id")

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var models []domain.PostModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return postsToDomain(models), nil
}

// IncrementViews bumps view_count without touching updated_at.
func (r *GormPostRepository) IncrementViews(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&domain.PostModel{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *GormPostRepository) Totals(ctx context.Context, authorID string, createdSince *time.Time) (domain.PostTotals, error) {
	var row totalsRow

	tx := r.db.WithContext(ctx).Model(&domain.PostModel{}).
		Select("COALESCE(SUM(view_count), 0) AS views, COALESCE(SUM(like_count), 0) AS likes").
		Where("author_id = ?", authorID)
	if createdSince != nil {
		tx = tx.Where("created_at >= ?", *createdSince)
	}

	if err := tx.Scan(&row).Error; err != nil {
		return domain.PostTotals{}, err
	}
	return domain.PostTotals{Views: row.Views, Likes: row.Likes}, nil
}

type totalsRow struct {
	Views int64
	Likes int64
}

func postsToDomain(models []domain.PostModel) []*domain.Post {
	posts := make([]*domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, models[i].ToDomain())
	}
	return posts
}

// Ensure interface is satisfied at compile time.
var _ PostRepository = (*GormPostRepository)(nil)
