package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/internal/service"
	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/middleware"
	"github.com/weiawesome/quill/pkg/response"
)

const actorKey = "actor"

// Services groups the business services the HTTP layer depends on.
// Media is optional; the upload route is not registered without it.
type Services struct {
	Identity   service.IdentityService
	Posts      service.PostService
	Engagement service.EngagementService
	Graph      service.SocialGraphService
	Feed       service.FeedService
	Analytics  service.AnalyticsService
	Media      service.MediaService
}

// Handler handles HTTP requests for the publishing API.
type Handler struct {
	svc            Services
	authMiddleware *middleware.AuthMiddleware
	viewLimiter    *middleware.RateLimiter
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc Services, authMiddleware *middleware.AuthMiddleware, viewLimiter *middleware.RateLimiter) *Handler {
	return &Handler{
		svc:            svc,
		authMiddleware: authMiddleware,
		viewLimiter:    viewLimiter,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	authed := []gin.HandlerFunc{h.authMiddleware.RequireAuth(), h.requireActor()}
	optional := []gin.HandlerFunc{h.authMiddleware.OptionalAuth(), h.optionalActor()}

	api := r.Group("/api/v1")
	{
		me := api.Group("/me", authed...)
		{
			me.GET("", h.GetMe)
			me.PUT("/handle", h.UpdateHandle)
			me.GET("/draft", h.GetDraft)
			me.PUT("/draft", h.SaveDraft)
			me.GET("/posts", h.ListMyPosts)
			me.GET("/analytics", h.GetAnalytics)
		}

		posts := api.Group("/posts")
		{
			posts.POST("", append(authed, h.Publish)...)
			posts.GET("/:post_id", append(optional, h.GetPost)...)
			posts.PATCH("/:post_id", append(authed, h.UpdatePost)...)
			posts.DELETE("/:post_id", append(authed, h.DeletePost)...)
			posts.POST("/:post_id/views", h.viewLimiter.Handler(), h.IncrementView)
			posts.POST("/:post_id/like", append(authed, h.ToggleLike)...)
			posts.GET("/:post_id/like", append(authed, h.HasLiked)...)
			posts.GET("/:post_id/comments", append(optional, h.ListComments)...)
			posts.POST("/:post_id/comments", append(authed, h.AddComment)...)
		}

		api.DELETE("/comments/:comment_id", append(authed, h.DeleteComment)...)

		users := api.Group("/users")
		{
			users.POST("/:user_id/follow", append(authed, h.ToggleFollow)...)
			users.GET("/:user_id/follow", append(authed, h.IsFollowing)...)
			users.GET("/:user_id/followers/count", h.GetFollowersCount)
			users.GET("/:user_id/followers", h.ListFollowers)
			users.GET("/:user_id/following", h.ListFollowing)
		}

		authors := api.Group("/authors")
		{
			authors.GET("/:handle", h.GetAuthor)
			authors.GET("/:handle/posts", h.ListAuthorPosts)
			authors.GET("/:handle/posts/:post_id", h.GetAuthorPost)
		}

		feed := api.Group("/feed")
		{
			feed.GET("", h.GetFeed)
			feed.GET("/trending", h.GetTrending)
			feed.GET("/suggestions", append(authed, h.GetSuggestions)...)
		}

		if h.svc.Media != nil {
			api.POST("/uploads/featured-image", append(authed, h.PresignFeaturedImage)...)
		}
	}
}

func identityFromContext(c *gin.Context) *domain.Identity {
	return &domain.Identity{
		TokenIdentifier: middleware.GetSubject(c),
		Name:            middleware.GetName(c),
		Email:           middleware.GetEmail(c),
		Picture:         middleware.GetPicture(c),
	}
}

// requireActor resolves the verified token to a platform user, provisioning
// it on first contact, and stores it on the context.
func (h *Handler) requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.attachActor(c) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// optionalActor resolves the actor when a verified token is present.
func (h *Handler) optionalActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.GetSubject(c) != "" && !h.attachActor(c) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) attachActor(c *gin.Context) bool {
	identity := identityFromContext(c)
	c.Set(log.FieldSubject, identity.TokenIdentifier)

	user, err := h.svc.Identity.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.fail(c, err, "failed to resolve user")
		return false
	}

	c.Set(actorKey, user)
	c.Set(log.FieldUserID, user.ID)
	c.Request = c.Request.WithContext(log.WithStr(c.Request.Context(), log.FieldUserID, user.ID))
	return true
}

// actor returns the resolved user, or nil on anonymous requests.
func actor(c *gin.Context) *domain.User {
	if v, ok := c.Get(actorKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// fail writes the response matching a service error. Unknown errors are
// logged and reported as internal with msg.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Field, verr.Message)
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, "authentication required")
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, service.ErrUnauthorized):
		response.Forbidden(c, "not allowed")
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, "conflict")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoute, c.FullPath()).Msg(msg)
		response.InternalError(c, msg)
	}
}

// queryLimit reads ?limit=. Absent means 0, which services replace with their default.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.ValidationFailed(c, "limit", "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Str(log.FieldRoute, c.FullPath()).Msg("invalid request body")
		response.BadRequest(c, "invalid request body")
		return false
	}
	return true
}
