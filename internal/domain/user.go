package domain

import (
	"time"
)

// Identity is what the identity provider asserts about the caller.
// TokenIdentifier is stable per external account; the rest is display data.
type Identity struct {
	TokenIdentifier string
	Name            string
	Email           string
	Picture         string
}

// User is a platform account, provisioned on first authenticated contact.
type User struct {
	ID              string    `json:"id"`
	TokenIdentifier string    `json:"-"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Handle          *string   `json:"handle"`
	AvatarURL       *string   `json:"avatar_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Profile returns the public snapshot of u.
func (u *User) Profile() AuthorProfile {
	return AuthorProfile{
		ID:        u.ID,
		Name:      u.Name,
		Handle:    u.Handle,
		AvatarURL: u.AvatarURL,
	}
}

// AuthorProfile is the public part of a user, embedded in feed and comment views.
type AuthorProfile struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Handle    *string `json:"handle"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UpdateHandleRequest is the body of PUT /me/handle.
type UpdateHandleRequest struct {
	Handle string `json:"handle" binding:"required"`
}
