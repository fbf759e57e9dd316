package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization. Emails are
// stored and looked up in this form, so uniqueness is case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
