package identity

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// Store is the persistence port for users.
type Store interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a new user
	Create(ctx context.Context, u *User) error

	// Update persists changes to an existing user
	Update(ctx context.Context, u *User) error
}
