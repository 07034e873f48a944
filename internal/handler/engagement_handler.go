package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/response"
)

// IncrementView handles POST /api/v1/posts/:post_id/views.
func (h *Handler) IncrementView(c *gin.Context) {
	if err := h.svc.Engagement.IncrementView(c.Request.Context(), c.Param("post_id")); err != nil {
		h.fail(c, err, "failed to record view")
		return
	}
	response.NoContent(c)
}

// ToggleLike handles POST /api/v1/posts/:post_id/like.
func (h *Handler) ToggleLike(c *gin.Context) {
	state, err := h.svc.Engagement.ToggleLike(c.Request.Context(), actor(c), c.Param("post_id"))
	if err != nil {
		h.fail(c, err, "failed to toggle like")
		return
	}
	response.Success(c, domain.LikeToggleResponse{State: state})
}

// HasLiked handles GET /api/v1/posts/:post_id/like.
func (h *Handler) HasLiked(c *gin.Context) {
	liked, err := h.svc.Engagement.HasLiked(c.Request.Context(), actor(c), c.Param("post_id"))
	if err != nil {
		h.fail(c, err, "failed to check like")
		return
	}
	response.Success(c, gin.H{"liked": liked})
}

// ListComments handles GET /api/v1/posts/:post_id/comments.
func (h *Handler) ListComments(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	comments, err := h.svc.Engagement.ListComments(c.Request.Context(), actor(c), c.Param("post_id"), limit)
	if err != nil {
		h.fail(c, err, "failed to list comments")
		return
	}
	response.Success(c, gin.H{"comments": comments})
}

// AddComment handles POST /api/v1/posts/:post_id/comments.
func (h *Handler) AddComment(c *gin.Context) {
	var req domain.AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.svc.Engagement.AddComment(c.Request.Context(), actor(c), c.Param("post_id"), req.Content)
	if err != nil {
		h.fail(c, err, "failed to add comment")
		return
	}
	response.Created(c, comment)
}

// DeleteComment handles DELETE /api/v1/comments/:comment_id.
func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.svc.Engagement.DeleteComment(c.Request.Context(), actor(c), c.Param("comment_id")); err != nil {
		h.fail(c, err, "failed to delete comment")
		return
	}
	response.NoContent(c)
}
