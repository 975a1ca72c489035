package strings

import (
	"strings"
)

// DefaultDescriptionMaxLen is the default maximum length for tool
// descriptions in table output.
const DefaultDescriptionMaxLen = 80

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

const ellipsis = "..."

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
// Whitespace is preserved, so backend error bodies keep their layout.
// maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-len(ellipsis)]) + ellipsis
	}
	return s
}

// SingleLine collapses every run of whitespace, newlines included, into a
// single space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateDescription renders s as one line of at most maxLen runes.
func TruncateDescription(s string, maxLen int) string {
	return Truncate(SingleLine(s), maxLen)
}
