package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/database"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a new user. A clash on token_identifier returns ErrUserExists.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return err
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByTokenIdentifier retrieves a user by identity-provider token identifier.
func (r *GormUserRepository) GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*domain.User, error) {
	return r.first(ctx, "token_identifier = ?", tokenIdentifier)
}

// GetByHandle retrieves a user by public handle.
func (r *GormUserRepository) GetByHandle(ctx context.Context, handle string) (*domain.User, error) {
	return r.first(ctx, "handle = ?", handle)
}

func (r *GormUserRepository) first(ctx context.Context, query string, arg string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves the users that exist among ids. Missing ids are skipped.
func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}

// UpdateHandle sets the user's handle. A clash returns ErrHandleTaken.
func (r *GormUserRepository) UpdateHandle(ctx context.Context, id, handle string) error {
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", id).
		Update("handle", handle)
	if result.Error != nil {
		if database.IsUniqueViolation(result.Error) {
			return ErrHandleTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListExcluding returns up to limit users whose id is not in excludeIDs, newest first.
func (r *GormUserRepository) ListExcluding(ctx context.Context, excludeIDs []string, limit int) ([]*domain.User, error) {
	q := r.db.WithContext(ctx).Model(&domain.UserModel{})
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}

	var models []domain.UserModel
	if err := q.Order("created_at DESC").Order("id").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}

// Ensure interface is satisfied at compile time.
var _ UserRepository = (*GormUserRepository)(nil)
