package domain

import (
	"time"
)

// FollowResult tags the outcome of a follow toggle.
type FollowResult string

const (
	Followed   FollowResult = "followed"
	Unfollowed FollowResult = "unfollowed"
)

// Follow is the domain representation of a follow relationship.
type Follow struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// FollowToggleResponse is the body returned from a follow toggle.
type FollowToggleResponse struct {
	State FollowResult `json:"state"`
}
