package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"authgate/cmd/identity"
	"authgate/cmd/security/password"
	"authgate/cmd/security/token"
)

// CredentialLookup is the slice of the identity store the Authority
// needs to check a login. *identity.PostgresStore satisfies it.
type CredentialLookup interface {
	GetAuthByEmail(ctx context.Context, email string) (identity.UserAuth, error)
}

// Started is returned once per Start call. Token is the only copy of
// the raw session token; it is never stored or logged.
type Started struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// Authority decides who a request belongs to. It authenticates
// credentials against a CredentialLookup and manages session lifecycle
// in a Store.
type Authority struct {
	creds    CredentialLookup
	store    Store
	verifier password.Config
	cfg      Config

	// dummyHash is verified against when the email is unknown so a
	// lookup miss costs the same as a password mismatch.
	dummyHash string

	now func() time.Time
}

// NewAuthority wires an Authority. The verifier must match the policy
// the identity store hashed with.
func NewAuthority(creds CredentialLookup, store Store, verifier password.Config, cfg Config) (*Authority, error) {
	if creds == nil {
		return nil, fmt.Errorf("%w: nil credential lookup", ErrConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil session store", ErrConfig)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: non-positive ttl", ErrConfig)
	}
	if cfg.TokenBytes < minTokenBytes {
		cfg.TokenBytes = defaultTokenBytes
	}

	dummy, err := verifier.Hash("authority-dummy-credential")
	if err != nil {
		return nil, fmt.Errorf("%w: building dummy hash: %v", ErrConfig, err)
	}

	return &Authority{
		creds:     creds,
		store:     store,
		verifier:  verifier,
		cfg:       cfg,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Authenticate checks an email/password pair and returns the matching
// user id. Unknown accounts and wrong passwords both come back as
// ErrInvalidCredentials.
func (a *Authority) Authenticate(ctx context.Context, email, pass string) (int64, error) {
	ua, err := a.creds.GetAuthByEmail(ctx, email)
	switch {
	case err == nil:
	case identity.IsNotFound(err):
		// Burn a verify anyway so the miss is not observably faster.
		_, _ = a.verifier.Verify(a.dummyHash, pass)
		return 0, ErrInvalidCredentials
	case identity.IsUnavailable(err):
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return 0, ErrInvalidCredentials
	}

	ok, err := a.verifier.Verify(ua.PasswordHash, pass)
	if err != nil || !ok {
		return 0, ErrInvalidCredentials
	}
	return ua.ID, nil
}

// Start issues a fresh session for the user and returns the raw token.
func (a *Authority) Start(ctx context.Context, userID int64) (Started, error) {
	raw, err := token.NewOpaque(a.cfg.TokenBytes)
	if err != nil {
		return Started{}, fmt.Errorf("%w: generating token: %v", ErrUnavailable, err)
	}

	now := a.now().UTC()
	row := Row{
		ID:        ulid.Make().String(),
		UserID:    userID,
		TokenHash: token.HashSessionTokenHex(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.TTL),
	}
	if err := a.store.Create(ctx, row); err != nil {
		return Started{}, err
	}

	return Started{SessionID: row.ID, Token: raw, ExpiresAt: row.ExpiresAt}, nil
}

// Resolve maps a raw bearer token to the owning user id. Missing
// sessions return ErrSessionNotFound; expired or revoked ones return
// ErrSessionNotActive.
func (a *Authority) Resolve(ctx context.Context, rawToken string) (int64, error) {
	if rawToken == "" {
		return 0, ErrSessionNotFound
	}

	row, err := a.store.GetByTokenHash(ctx, token.HashSessionTokenHex(rawToken))
	if err != nil {
		return 0, err
	}
	if !row.ActiveAt(a.now().UTC()) {
		return 0, ErrSessionNotActive
	}
	return row.UserID, nil
}

// End revokes the session for the given raw token. Ending an unknown or
// already-ended session succeeds.
func (a *Authority) End(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	err := a.store.Revoke(ctx, token.HashSessionTokenHex(rawToken), a.now().UTC())
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}
