// Package session issues, resolves and revokes opaque bearer sessions.
//
// Tokens are random strings handed to the client exactly once; only a
// keyed hash of each token is stored, so a leaked session table cannot
// be replayed. Storage backends (in-memory, Postgres, Redis) sit behind
// a small Store interface and the Authority carries the credential and
// lifecycle logic on top of it.
package session
