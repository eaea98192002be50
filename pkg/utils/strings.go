package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContainsAny checks if the text contains any of the given keywords
func ContainsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// CollapseSpaces trims s and replaces every run of whitespace with one space
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CapitalizeFirst upper-cases the first rune of s
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// RuneLen returns the number of characters in s
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate shortens s to at most max characters, replacing the tail with
// "..." when anything is cut
func Truncate(s string, max int) string {
	if max <= 3 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
