package identity

import "strings"

// NormalizeUsername trims surrounding whitespace. Usernames are display
// names here, so case is preserved and uniqueness is not enforced.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
