package identity

import (
	"context"
	"time"
)

// User is the canonical user record.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth carries the minimum needed to verify a login attempt.
// The hash is opaque to callers; verification goes through security/password.
type UserAuth struct {
	ID           int64
	Email        string
	PasswordHash string
}

// RegisterInput describes a registration request. Password is the raw
// password; Register hashes it and never persists or logs it.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Store is the credential persistence boundary.
type Store interface {
	// Register validates input, hashes the password, and inserts a new
	// user. Concurrent registrations with the same email resolve via the
	// storage-layer unique constraint: exactly one succeeds, the rest
	// fail with ErrDuplicateEmail.
	Register(ctx context.Context, in RegisterInput) (User, error)

	// GetAuthByEmail is a read-only lookup by normalized email.
	// Returns ErrNotFound when no user matches.
	GetAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	// GetByID is a read-only lookup by user id, used to render the
	// authenticated user's profile. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id int64) (User, error)
}
