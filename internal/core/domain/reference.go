package domain

import (
	"fmt"
	"strings"
)

// Reference suffixes use bijective base-26: 0→"a", 25→"z", 26→"aa".
// The scheme keeps hand-written references short while staying sortable
// by (length, lexicographic).

// NumberToAlpha encodes a non-negative number as a lowercase suffix.
func NumberToAlpha(number int) string {
	var b strings.Builder
	for number >= 0 {
		b.WriteByte(byte('a' + number%26))
		number = number/26 - 1
	}
	runes := []byte(b.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// AlphaToNumber decodes a lowercase suffix back into its number.
// It returns -1 for an empty or non-lowercase input.
func AlphaToNumber(s string) int {
	if s == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return -1
		}
		n = n*26 + int(c-'a') + 1
	}
	return n - 1
}

// FormatReference builds the journal reference for the n-th posting
// slot of a day.
func FormatReference(date ValueDate, n int) string {
	return fmt.Sprintf("%s%s", date, NumberToAlpha(n))
}

// CompareReferences orders two references: shorter suffixes sort first,
// equal lengths sort lexicographically. For same-day references this
// matches the numeric order of the suffix.
func CompareReferences(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
