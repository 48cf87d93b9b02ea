package harness

import (
	"strings"
	"unicode"
)

// Normalize collapses every run of whitespace into a single space and trims both ends.
// Case is preserved. Normalize is idempotent.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ContainsNormalized reports whether needle occurs in haystack after normalizing both.
func ContainsNormalized(haystack, needle string) bool {
	return containsIn(Normalize(haystack), needle)
}

func containsIn(normalizedHaystack, needle string) bool {
	return strings.Contains(normalizedHaystack, Normalize(needle))
}
