// Package identity owns persistent user records and their credentials.
//
// It enforces email uniqueness at the storage layer (a Postgres unique
// constraint, not a pre-check) and hashes passwords before they reach the
// database. Callers receive typed sentinel kinds for conflicts, missing
// rows, bad input and backend unavailability.
package identity
