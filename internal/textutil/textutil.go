// Package textutil holds the string predicates shared by the outline and
// section pipelines.
package textutil

import (
	"strings"
	"unicode"
)

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}

// IsUpper reports whether s has at least one cased rune and every cased
// rune is uppercase. Digits and punctuation are ignored, so "2024 PLAN"
// qualifies while "2024" does not.
func IsUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// IsTitle reports whether s is title-cased: uppercase runes only follow
// uncased runes, lowercase runes only follow cased ones, and at least one
// cased rune exists.
func IsTitle(s string) bool {
	cased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased = true
			cased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased = true
		default:
			prevCased = isCased(r)
		}
	}
	return cased
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// RuneCount is the length of s in characters.
func RuneCount(s string) int {
	return len([]rune(s))
}
