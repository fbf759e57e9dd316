package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"authgate/cmd/security/password"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// too, which keeps the store unit-testable without a database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over PostgreSQL.
//
// The pool is owned by the caller; this store must not close it. Every
// operation acquires and releases its own pooled connection inside the pgx
// call, bounded by a per-operation timeout so a stalled backend cannot
// hang request handlers.
type PostgresStore struct {
	db           DB
	hasher       password.Config
	queryTimeout time.Duration
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore)

// WithQueryTimeout bounds each store operation. Non-positive values keep
// the default.
func WithQueryTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db DB, hasher password.Config, opts ...PostgresOption) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("identity: nil db")
	}

	st := &PostgresStore{
		db:           db,
		hasher:       hasher,
		queryTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(st)
	}
	return st, nil
}

// Register inserts a new user with a freshly hashed password.
//
// Caller-side validation (presence, confirmation match) is treated as a
// hint: the store re-validates every field and the password policy before
// touching the database.
func (s *PostgresStore) Register(ctx context.Context, in RegisterInput) (User, error) {
	const op = "identity.Register"

	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := NormalizeEmail(in.Email)

	if first == "" || last == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "all fields are required"}
	}
	if err := s.hasher.Validate(in.Password); err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	u := User{
		FirstName: first,
		LastName:  last,
		Email:     email,
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, first, last, email, hash).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, OpError{Op: op, Kind: ErrDuplicateEmail, Msg: "email already exists"}
		}
		return User{}, UnavailableError{Op: op, Err: err}
	}

	return u, nil
}

// GetAuthByEmail loads the id and password hash for a login attempt.
func (s *PostgresStore) GetAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetAuthByEmail"

	email = NormalizeEmail(email)
	if email == "" {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing email"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var ua UserAuth
	err := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash
		FROM users
		WHERE email = $1
	`, email).Scan(&ua.ID, &ua.Email, &ua.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserAuth{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return UserAuth{}, UnavailableError{Op: op, Err: err}
	}

	return ua, nil
}

// GetByID loads a user's profile fields by id.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (User, error) {
	const op = "identity.GetByID"

	if id <= 0 {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing user id"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, OpError{Op: op, Kind: ErrNotFound, Msg: fmt.Sprintf("user %d", id)}
		}
		return User{}, UnavailableError{Op: op, Err: err}
	}

	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation
}
