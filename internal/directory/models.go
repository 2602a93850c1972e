// Package directory resolves peer identities. The messenger core owns the user
// table; this package only reads it.
package directory

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("directory: user not found")

// User is the subset of a messenger account the call engine needs.
type User struct {
	UserID     string `json:"user_id" db:"user_id"`
	FullName   string `json:"full_name" db:"full_name"`
	AvatarURL  string `json:"avatar_url,omitempty" db:"avatar_url"`
	IsDisabled bool   `json:"is_disabled" db:"is_disabled"`
}

// Directory looks up users by id.
type Directory interface {
	GetUser(ctx context.Context, userID string) (User, error)
}
