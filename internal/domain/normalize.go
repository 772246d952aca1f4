package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for tour titles and stop names.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText trims leading/trailing whitespace but keeps internal formatting (line breaks).
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}
