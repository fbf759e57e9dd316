package session

import "errors"

var (
	// ErrInvalidCredentials is returned for any authentication failure,
	// whether the account is unknown or the password is wrong. Callers
	// must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound means no session row matches the presented token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive means the session exists but is expired or revoked.
	ErrSessionNotActive = errors.New("session not active")

	// ErrUnavailable wraps backend failures (storage down, timeouts).
	ErrUnavailable = errors.New("session storage unavailable")

	// ErrConfig reports invalid session configuration.
	ErrConfig = errors.New("invalid session config")
)
