package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of pgxpool.Pool the store needs. pgxmock satisfies
// it too, which keeps the unit tests off a live database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultSessionQueryTimeout = 3 * time.Second

// PostgresStore persists sessions in the sessions table. Rows survive
// restarts and revocation is visible to every node sharing the pool.
type PostgresStore struct {
	db           DB
	queryTimeout time.Duration
}

// PostgresOption customizes a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresQueryTimeout caps how long any single statement may run.
func WithPostgresQueryTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// NewPostgresStore wires a session store over an existing pool.
func NewPostgresStore(db DB, opts ...PostgresOption) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil db", ErrConfig)
	}
	s := &PostgresStore{db: db, queryTimeout: defaultSessionQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a session row.
func (s *PostgresStore) Create(ctx context.Context, row Row) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	const q = `
		INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.Exec(ctx, q, row.ID, row.UserID, row.TokenHash, row.CreatedAt, row.ExpiresAt); err != nil {
		return fmt.Errorf("%w: insert session: %v", ErrUnavailable, err)
	}
	return nil
}

// GetByTokenHash loads a session row by its stored token hash.
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	const q = `
		SELECT id, user_id, token_hash, created_at, expires_at, revoked_at
		FROM sessions
		WHERE token_hash = $1`

	var row Row
	err := s.db.QueryRow(ctx, q, tokenHash).
		Scan(&row.ID, &row.UserID, &row.TokenHash, &row.CreatedAt, &row.ExpiresAt, &row.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, ErrSessionNotFound
		}
		return Row{}, fmt.Errorf("%w: select session: %v", ErrUnavailable, err)
	}
	return row, nil
}

// Revoke stamps revoked_at, keeping an earlier stamp if one exists.
// Revoking a hash with no matching row is a no-op.
func (s *PostgresStore) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	const q = `
		UPDATE sessions
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1`

	if _, err := s.db.Exec(ctx, q, tokenHash, at); err != nil {
		return fmt.Errorf("%w: revoke session: %v", ErrUnavailable, err)
	}
	return nil
}
