package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/response"
)

// ToggleFollow handles POST /api/v1/users/:user_id/follow.
func (h *Handler) ToggleFollow(c *gin.Context) {
	state, err := h.svc.Graph.ToggleFollow(c.Request.Context(), actor(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, err, "failed to toggle follow")
		return
	}
	response.Success(c, domain.FollowToggleResponse{State: state})
}

// IsFollowing handles GET /api/v1/users/:user_id/follow.
func (h *Handler) IsFollowing(c *gin.Context) {
	following, err := h.svc.Graph.IsFollowing(c.Request.Context(), actor(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, err, "failed to check follow")
		return
	}
	response.Success(c, gin.H{"following": following})
}

// GetFollowersCount handles GET /api/v1/users/:user_id/followers/count.
func (h *Handler) GetFollowersCount(c *gin.Context) {
	count, err := h.svc.Graph.FollowerCount(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err, "failed to get followers count")
		return
	}
	response.Success(c, gin.H{"count": count})
}

// ListFollowers handles GET /api/v1/users/:user_id/followers.
func (h *Handler) ListFollowers(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	users, err := h.svc.Graph.ListFollowers(c.Request.Context(), c.Param("user_id"), limit)
	if err != nil {
		h.fail(c, err, "failed to list followers")
		return
	}
	response.Success(c, gin.H{"users": users})
}

// ListFollowing handles GET /api/v1/users/:user_id/following.
func (h *Handler) ListFollowing(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	users, err := h.svc.Graph.ListFollowing(c.Request.Context(), c.Param("user_id"), limit)
	if err != nil {
		h.fail(c, err, "failed to list following")
		return
	}
	response.Success(c, gin.H{"users": users})
}
