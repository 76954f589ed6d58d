package core

import (
	"strings"
	"unicode"
)

// NormalizeEmail trims and lowers an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CollapseSpaces trims `s` and replaces inner runs of whitespace with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
