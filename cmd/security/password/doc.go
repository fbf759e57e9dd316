// Package password provides password hashing and verification for authgate.
//
// It wraps bcrypt (salted, adaptive cost) behind a single Config surface:
// - Configurable cost factor (via environment variables)
// - Password policy validation (length bounds)
// - Verification that treats stored hashes as untrusted input
//
// The raw password never leaves this package in any stored or logged form.
package password
