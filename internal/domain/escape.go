package domain

import "strings"

// EscapeNulls applies the null-escape transformation (spec §6.6) to any
// text originating from blockchain bytes before it reaches a text column or
// JSON serialization: '\0' -> "\\0". Applied once at the boundary rather
// than scattered across call sites (see SPEC_FULL.md Supplemented Features).
func EscapeNulls(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, "\x00", `\0`)
}
