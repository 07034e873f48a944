package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/response"
)

// Publish handles POST /api/v1/posts.
// The actor's draft, if any, becomes the published post.
func (h *Handler) Publish(c *gin.Context) {
	var input domain.PostInput
	if !bindJSON(c, &input) {
		return
	}

	id, err := h.svc.Posts.Publish(c.Request.Context(), actor(c), &input)
	if err != nil {
		h.fail(c, err, "failed to publish post")
		return
	}
	response.Created(c, domain.PostIDResponse{PostID: id})
}

// GetPost handles GET /api/v1/posts/:post_id.
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.svc.Posts.GetPost(c.Request.Context(), actor(c), c.Param("post_id"))
	if err != nil {
		h.fail(c, err, "failed to get post")
		return
	}
	response.Success(c, post)
}

// UpdatePost handles PATCH /api/v1/posts/:post_id.
func (h *Handler) UpdatePost(c *gin.Context) {
	var patch domain.PostPatch
	if !bindJSON(c, &patch) {
		return
	}

	id, err := h.svc.Posts.Update(c.Request.Context(), actor(c), c.Param("post_id"), &patch)
	if err != nil {
		h.fail(c, err, "failed to update post")
		return
	}
	response.Success(c, domain.PostIDResponse{PostID: id})
}

// DeletePost handles DELETE /api/v1/posts/:post_id.
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.svc.Posts.Delete(c.Request.Context(), actor(c), c.Param("post_id")); err != nil {
		h.fail(c, err, "failed to delete post")
		return
	}
	response.NoContent(c)
}

// GetAuthor handles GET /api/v1/authors/:handle.
func (h *Handler) GetAuthor(c *gin.Context) {
	profile, err := h.svc.Identity.GetByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		h.fail(c, err, "failed to get author")
		return
	}
	response.Success(c, profile)
}

// ListAuthorPosts handles GET /api/v1/authors/:handle/posts.
func (h *Handler) ListAuthorPosts(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	posts, err := h.svc.Posts.ListPublishedByHandle(c.Request.Context(), c.Param("handle"), limit)
	if err != nil {
		h.fail(c, err, "failed to list author posts")
		return
	}
	response.Success(c, gin.H{"posts": posts})
}

// GetAuthorPost handles GET /api/v1/authors/:handle/posts/:post_id.
func (h *Handler) GetAuthorPost(c *gin.Context) {
	post, err := h.svc.Posts.GetPublishedByHandle(c.Request.Context(), c.Param("handle"), c.Param("post_id"))
	if err != nil {
		h.fail(c, err, "failed to get author post")
		return
	}
	response.Success(c, post)
}
