package domain

// FeedPage is one page of the chronological feed.
type FeedPage struct {
	Posts   []PostView `json:"posts"`
	HasMore bool       `json:"has_more"`
}

// Analytics summarises engagement across an author's posts.
type Analytics struct {
	TotalViews      int64   `json:"total_views"`
	TotalLikes      int64   `json:"total_likes"`
	TotalComments   int64   `json:"total_comments"`
	TotalFollowers  int64   `json:"total_followers"`
	ViewsGrowth     float64 `json:"views_growth"`
	LikesGrowth     float64 `json:"likes_growth"`
	CommentsGrowth  float64 `json:"comments_growth"`
	FollowersGrowth float64 `json:"followers_growth"`
}

// PostTotals are the summed counters over a set of posts.
type PostTotals struct {
	Views int64
	Likes int64
}

// PresignRequest asks for a featured-image upload URL.
type PresignRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size"`
}

// PresignResponse is returned when a presigned upload URL is generated.
type PresignResponse struct {
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
