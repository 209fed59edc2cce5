package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentifier canonicalizes a user-supplied identifier (email address
// or phone number): surrounding whitespace is trimmed and the string is
// NFKC-normalized so visually identical inputs compare equal.
func NormalizeIdentifier(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}
