package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/quill/pkg/jwt"
	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/response"
)

const (
	SubjectKey    = "subject"
	NameKey       = "name"
	EmailKey      = "email"
	PictureKey    = "picture"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates identity-provider tokens.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			l := log.Ctx(c.Request.Context())
			l.Debug().Err(err).Msg("token rejected")
			if errors.Is(err, jwt.ErrExpiredToken) {
				response.Unauthorized(c, "token has expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches identity when a valid token is present and
// lets anonymous requests through. An invalid token is treated as anonymous.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := m.verifier.Verify(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(SubjectKey, claims.TokenIdentifier())
	c.Set(NameKey, claims.Name)
	c.Set(EmailKey, claims.Email)
	c.Set(PictureKey, claims.Picture)
}

// GetSubject returns the verified token identifier, or "" when anonymous.
func GetSubject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}

// GetName returns the display name claim.
func GetName(c *gin.Context) string {
	return c.GetString(NameKey)
}

// GetEmail returns the email claim.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// GetPicture returns the avatar URL claim.
func GetPicture(c *gin.Context) string {
	return c.GetString(PictureKey)
}
