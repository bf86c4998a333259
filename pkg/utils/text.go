// Package utils provides shared utilities for text, math, and logging.
package utils

import "unicode/utf8"

// Truncate returns s cut to maxLen characters, with "..." appended if it was cut.
// Lengths are counted in runes so multi-byte text is never split mid-character.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// EstimateTokens returns a rough token count for text (4 characters per token
// on average). Used for context size reporting, not for enforcement.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
