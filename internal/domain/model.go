package domain

import (
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/quill/pkg/database"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"`
	TokenIdentifier string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name            string    `gorm:"type:varchar(100);not null"`
	Email           string    `gorm:"type:varchar(255)"`
	Handle          *string   `gorm:"type:varchar(20);uniqueIndex"`
	AvatarURL       *string   `gorm:"type:varchar(1024)"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *User {
	return &User{
		ID:              m.ID,
		TokenIdentifier: m.TokenIdentifier,
		Name:            m.Name,
		Email:           m.Email,
		Handle:          m.Handle,
		AvatarURL:       m.AvatarURL,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:              u.ID,
		TokenIdentifier: u.TokenIdentifier,
		Name:            u.Name,
		Email:           u.Email,
		Handle:          u.Handle,
		AvatarURL:       u.AvatarURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// PostModel is the GORM model for the posts table.
// At most one draft per author is enforced by the partial index
// uidx_posts_author_draft created in repository.Migrate.
type PostModel struct {
	ID            string               `gorm:"type:varchar(36);primaryKey"`
	AuthorID      string               `gorm:"type:varchar(36);not null;index"`
	Title         string               `gorm:"type:varchar(200);not null"`
	Content       string               `gorm:"type:text;not null"`
	Category      *string              `gorm:"type:varchar(100)"`
	Tags          database.StringArray `gorm:"type:text"`
	FeaturedImage *string              `gorm:"type:varchar(1024)"`
	Status        string               `gorm:"type:varchar(16);not null;index"`
	ScheduledFor  *time.Time           `gorm:"index"`
	PublishedAt   *time.Time           `gorm:"index"`
	ViewCount     int64                `gorm:"not null;default:0"`
	LikeCount     int64                `gorm:"not null;default:0"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime"`
}

func (PostModel) TableName() string { return "posts" }

func (m *PostModel) ToDomain() *Post {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &Post{
		ID:            m.ID,
		AuthorID:      m.AuthorID,
		Title:         m.Title,
		Content:       m.Content,
		Category:      m.Category,
		Tags:          tags,
		FeaturedImage: m.FeaturedImage,
		Status:        PostStatus(m.Status),
		ScheduledFor:  m.ScheduledFor,
		PublishedAt:   m.PublishedAt,
		ViewCount:     m.ViewCount,
		LikeCount:     m.LikeCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		Title:         p.Title,
		Content:       p.Content,
		Category:      p.Category,
		Tags:          database.StringArray(p.Tags),
		FeaturedImage: p.FeaturedImage,
		Status:        string(p.Status),
		ScheduledFor:  p.ScheduledFor,
		PublishedAt:   p.PublishedAt,
		ViewCount:     p.ViewCount,
		LikeCount:     p.LikeCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// LikeModel is the GORM model for the likes table.
type LikeModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uidx_likes_user_post,priority:1"`
	PostID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uidx_likes_user_post,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (LikeModel) TableName() string { return "likes" }

// CommentModel is the GORM model for the comments table.
type CommentModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	PostID    string    `gorm:"type:varchar(36);not null;index:idx_comments_post_created,priority:1"`
	AuthorID  string    `gorm:"type:varchar(36);not null;index"`
	Content   string    `gorm:"type:text;not null"`
	Status    string    `gorm:"type:varchar(16);not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_comments_post_created,priority:2"`
}

func (CommentModel) TableName() string { return "comments" }

func (m *CommentModel) ToDomain() *Comment {
	return &Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		Status:    CommentStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// FollowModel is the GORM model for the follows table.
// Unfollow soft-deletes; only one active row per pair (uidx_follow_pair_active).
type FollowModel struct {
	ID          uint           `gorm:"primaryKey;autoIncrement"`
	FollowerID  string         `gorm:"column:follower_id;type:varchar(36);not null;index"`
	FollowingID string         `gorm:"column:following_id;type:varchar(36);not null;index"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (FollowModel) TableName() string { return "follows" }

func (m *FollowModel) ToDomain() *Follow {
	return &Follow{
		FollowerID:  m.FollowerID,
		FollowingID: m.FollowingID,
		CreatedAt:   m.CreatedAt,
	}
}

// AllModels lists the models for auto-migration.
func AllModels() []interface{} {
	return []interface{}{&UserModel{}, &PostModel{}, &LikeModel{}, &CommentModel{}, &FollowModel{}}
}
