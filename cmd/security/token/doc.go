// Package token provides opaque token generation and at-rest hashing.
//
// Session tokens are random URL-safe strings held only by the client.
// The server persists a 64-char hex digest: HMAC-SHA256 when
// AUTHGATE_TOKEN_HMAC_KEY is set, SHA-256 otherwise.
package token
