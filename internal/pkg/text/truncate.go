// Package text holds small string helpers shared by the gateways.
package text

import "unicode/utf8"

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence
// and marks the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
