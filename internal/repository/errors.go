// Package repository holds the identity store implementations and the
// sentinel errors shared between them.  Handlers and middleware depend on
// the UserStore interface and branch on these values, never on
// driver-specific errors.
package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/backend-scaffold/internal/model"
)

// ErrNotFound is returned when no identity matches the lookup.  An id that
// cannot be parsed by the backend is reported the same way.
var ErrNotFound = errors.New("user not found")

// ErrDuplicate is returned when a username or email is already taken.
var ErrDuplicate = errors.New("username or email already exists")

// UserStore is the keyed identity lookup consumed by the auth pipeline.
type UserStore interface {
	// FindByID loads a user by primary key.
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByUsernameOrEmail matches either field after normalization.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	// Create inserts u, hashing its pending password, and sets u.ID.
	Create(ctx context.Context, u *model.User) error
	// Save updates profile fields.  The password hash is recomputed only
	// when u carries a pending password.
	Save(ctx context.Context, u *model.User) error
	// SetRefreshToken stores (or clears, with "") the refresh token reference.
	SetRefreshToken(ctx context.Context, id, token string) error
}
