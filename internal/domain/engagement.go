package domain

import "time"

// LikeResult tags the outcome of a like toggle.
type LikeResult string

const (
	Liked   LikeResult = "liked"
	Unliked LikeResult = "unliked"
)

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusRejected CommentStatus = "rejected"
)

// Like records that a user liked a post.
type Like struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a reader's response to a post.
type Comment struct {
	ID        string        `json:"id"`
	PostID    string        `json:"post_id"`
	AuthorID  string        `json:"author_id"`
	Content   string        `json:"content"`
	Status    CommentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// CommentView is a comment enriched with its author.
type CommentView struct {
	Comment
	Author AuthorProfile `json:"author"`
}

// LikeToggleResponse is the body returned from a like toggle.
type LikeToggleResponse struct {
	State LikeResult `json:"state"`
}

// AddCommentRequest is the body of POST /posts/:post_id/comments.
type AddCommentRequest struct {
	Content string `json:"content"`
}
