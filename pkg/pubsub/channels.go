package pubsub

// Channels carrying domain events. On Kafka the channel maps to a topic
// ("quill:posts" becomes "quill-posts") and the aggregate id is the message key,
// so all events for one post or user stay ordered on one partition.
const (
	ChannelPosts      = "quill:posts"
	ChannelEngagement = "quill:engagement"
	ChannelGraph      = "quill:graph"
)

// Event types.
const (
	EventPostPublished  = "post.published"
	EventPostUpdated    = "post.updated"
	EventPostDeleted    = "post.deleted"
	EventLikeToggled    = "like.toggled"
	EventCommentAdded   = "comment.added"
	EventCommentRemoved = "comment.removed"
	EventFollowToggled  = "follow.toggled"
)

// AllChannels lists every channel the platform publishes to.
func AllChannels() []string {
	return []string{ChannelPosts, ChannelEngagement, ChannelGraph}
}

// PostPublishedPayload is sent when a post becomes published.
type PostPublishedPayload struct {
	PostID       string  `json:"post_id"`
	AuthorID     string  `json:"author_id"`
	Title        string  `json:"title"`
	ScheduledFor *int64  `json:"scheduled_for,omitempty"` // unix millis
	FromDraft    bool    `json:"from_draft"`
	Category     *string `json:"category,omitempty"`
}

// PostUpdatedPayload is sent when an author edits an existing post.
type PostUpdatedPayload struct {
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
	Status   string `json:"status"`
}

// PostDeletedPayload is sent when an author deletes a post.
type PostDeletedPayload struct {
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
}

// LikeToggledPayload is sent after every like toggle.
type LikeToggledPayload struct {
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	State     string `json:"state"` // "liked" or "unliked"
	LikeCount int64  `json:"like_count"`
}

// CommentPayload is sent when a comment is added or removed.
type CommentPayload struct {
	CommentID string `json:"comment_id"`
	PostID    string `json:"post_id"`
	AuthorID  string `json:"author_id"`
}

// FollowToggledPayload is sent after every follow toggle.
type FollowToggledPayload struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
	State       string `json:"state"` // "followed" or "unfollowed"
}
