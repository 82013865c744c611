// Package validate holds the request shape checks shared by HTTP handlers.
package validate

import (
	"net/mail"
	"strings"
)

// maxEmailBytes follows the RFC 5321 path limit.
const maxEmailBytes = 254

// NonEmptyString reports whether v is a string with at least one non-space character.
func NonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// Email reports whether v is a bare addr-spec such as "a@example.com".
// Display names ("Ann <a@example.com>") are rejected.
func Email(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxEmailBytes {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}
