package strings

import (
	"strings"
)

// DefaultLineMaxLen is the width used for free text in table cells.
const DefaultLineMaxLen = 60

// MinTruncateLen is the smallest maxLen TruncateLine accepts; it leaves one character plus "...".
const MinTruncateLen = 4

// OutputTruncatedNotice ends output cut by TruncateOutput.
const OutputTruncatedNotice = "... (truncated, see the report for complete output)"

// TruncateLine flattens s to a single line with collapsed whitespace and cuts it to maxLen
// runes, ending in "..." when shortened. maxLen is raised to MinTruncateLen if smaller.
func TruncateLine(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TruncateOutput keeps at most maxBytes of multi-line command output. The cut moves back to
// the last full line when that keeps at least half of the budget, and OutputTruncatedNotice
// is appended on its own line.
func TruncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	if i := strings.LastIndex(s[:maxBytes], "\n"); i > maxBytes/2 {
		cut = i
	}
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n" + OutputTruncatedNotice
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
