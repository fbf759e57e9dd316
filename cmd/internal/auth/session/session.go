package session

import (
	"context"
	"time"
)

// Row is a stored session record. The raw token is never stored; only
// TokenHash, a hex digest computed by the security/token package.
type Row struct {
	ID        string
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ActiveAt reports whether the session is usable at the given instant:
// not revoked and not past its expiry.
func (r Row) ActiveAt(now time.Time) bool {
	if r.RevokedAt != nil {
		return false
	}
	return now.Before(r.ExpiresAt)
}

// Store persists session rows. Implementations map their backend's
// "missing row" condition to ErrSessionNotFound and any infrastructure
// failure to an error wrapping ErrUnavailable.
type Store interface {
	// Create persists a new session row.
	Create(ctx context.Context, row Row) error

	// GetByTokenHash loads the session whose stored hash matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (Row, error)

	// Revoke marks the session for the given token hash as ended. It is
	// idempotent: revoking an already-revoked or unknown session is not
	// an error, and an earlier revocation timestamp is preserved.
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
}
