package utils

import (
	"regexp"
	"strings"
)

// usernamePattern accepts lowercase letters, digits and underscore,
// between 3 and 20 characters.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// emailPattern is a deliberately loose shape check; deliverability is the
// verification email's problem, not ours.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidUsername reports whether s is an acceptable username.  The input is
// not normalized first; uppercase letters are rejected.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeIdentifier lowercases and trims a login identifier (email or
// username) so lookups are case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
