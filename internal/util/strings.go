package util

import "strings"

// SafeTruncate truncates a string to at most maxLen bytes without panicking.
// It is used when logging prefixes of identifiers such as authorization codes,
// where only the first few characters should ever appear in output.
//
// A negative maxLen is treated as zero.
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeURL normalizes a URL for comparison and joining by removing
// trailing slashes, so configured base URLs with and without a trailing
// slash behave identically.
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}
