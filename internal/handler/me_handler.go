package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/response"
)

// GetMe handles GET /api/v1/me.
func (h *Handler) GetMe(c *gin.Context) {
	response.Success(c, actor(c))
}

// UpdateHandle handles PUT /api/v1/me/handle.
func (h *Handler) UpdateHandle(c *gin.Context) {
	var req domain.UpdateHandleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Identity.UpdateHandle(c.Request.Context(), actor(c), req.Handle)
	if err != nil {
		h.fail(c, err, "failed to update handle")
		return
	}
	response.Success(c, user)
}

// GetDraft handles GET /api/v1/me/draft. The data is null when there is no draft.
func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.svc.Posts.GetDraft(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "failed to get draft")
		return
	}
	response.Success(c, gin.H{"draft": draft})
}

// SaveDraft handles PUT /api/v1/me/draft.
func (h *Handler) SaveDraft(c *gin.Context) {
	var input domain.PostInput
	if !bindJSON(c, &input) {
		return
	}

	id, err := h.svc.Posts.SaveDraft(c.Request.Context(), actor(c), &input)
	if err != nil {
		h.fail(c, err, "failed to save draft")
		return
	}
	response.Success(c, domain.PostIDResponse{PostID: id})
}

// ListMyPosts handles GET /api/v1/me/posts.
func (h *Handler) ListMyPosts(c *gin.Context) {
	posts, err := h.svc.Posts.ListMine(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "failed to list posts")
		return
	}
	response.Success(c, gin.H{"posts": posts})
}

// GetAnalytics handles GET /api/v1/me/analytics.
func (h *Handler) GetAnalytics(c *gin.Context) {
	a, err := h.svc.Analytics.GetAnalytics(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "failed to load analytics")
		return
	}
	response.Success(c, a)
}
