package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/response"
)

// GetFeed handles GET /api/v1/feed.
func (h *Handler) GetFeed(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	page, err := h.svc.Feed.GetFeed(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "failed to load feed")
		return
	}
	response.Success(c, page)
}

// GetTrending handles GET /api/v1/feed/trending.
func (h *Handler) GetTrending(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	posts, err := h.svc.Feed.GetTrendingPosts(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "failed to load trending posts")
		return
	}
	response.Success(c, gin.H{"posts": posts})
}

// GetSuggestions handles GET /api/v1/feed/suggestions.
func (h *Handler) GetSuggestions(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	users, err := h.svc.Feed.GetSuggestedUsers(c.Request.Context(), actor(c), limit)
	if err != nil {
		h.fail(c, err, "failed to load suggestions")
		return
	}
	response.Success(c, gin.H{"users": users})
}

// PresignFeaturedImage handles POST /api/v1/uploads/featured-image.
func (h *Handler) PresignFeaturedImage(c *gin.Context) {
	var req domain.PresignRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Media.PresignFeaturedImage(c.Request.Context(), actor(c), &req)
	if err != nil {
		h.fail(c, err, "failed to presign upload")
		return
	}
	response.Success(c, resp)
}
