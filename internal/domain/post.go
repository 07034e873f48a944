package domain

import (
	"time"
)

// PostStatus is the stored lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Visibility is derived at read time from status, scheduledFor and the clock.
type Visibility string

const (
	VisibilityDraft     Visibility = "draft"
	VisibilityScheduled Visibility = "scheduled"
	VisibilityLive      Visibility = "live"
)

// Post is a unit of authored content.
type Post struct {
	ID            string     `json:"id"`
	AuthorID      string     `json:"author_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      *string    `json:"category,omitempty"`
	Tags          []string   `json:"tags"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
	Status        PostStatus `json:"status"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	ViewCount     int64      `json:"view_count"`
	LikeCount     int64      `json:"like_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// VisibilityState derives whether p is a draft, scheduled for later, or live at now.
func VisibilityState(p *Post, now time.Time) Visibility {
	if p.Status != PostStatusPublished {
		return VisibilityDraft
	}
	if p.ScheduledFor != nil && p.ScheduledFor.After(now) {
		return VisibilityScheduled
	}
	return VisibilityLive
}

// IsLive reports whether p is visible to readers at now.
func (p *Post) IsLive(now time.Time) bool {
	return VisibilityState(p, now) == VisibilityLive
}

// PostInput is the full set of author-editable fields, used by saveDraft and publish.
type PostInput struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      *string    `json:"category"`
	Tags          []string   `json:"tags"`
	FeaturedImage *string    `json:"featured_image"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
}

// PostPatch carries only the fields supplied by an update; nil means unchanged.
type PostPatch struct {
	Title         *string    `json:"title"`
	Content       *string    `json:"content"`
	Category      *string    `json:"category"`
	Tags          *[]string  `json:"tags"`
	FeaturedImage *string    `json:"featured_image"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
}

// Apply overlays the supplied fields of patch onto p.
func (patch *PostPatch) Apply(p *Post) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Category != nil {
		p.Category = patch.Category
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.FeaturedImage != nil {
		p.FeaturedImage = patch.FeaturedImage
	}
	if patch.ScheduledFor != nil {
		p.ScheduledFor = patch.ScheduledFor
	}
}

// PostView is a post as shown to readers, with its author and derived visibility.
type PostView struct {
	Post
	Visibility Visibility    `json:"visibility"`
	Author     AuthorProfile `json:"author"`
}

// PostIDResponse is returned by mutations that yield a post id.
type PostIDResponse struct {
	PostID string `json:"post_id"`
}
