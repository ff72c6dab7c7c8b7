// Package utils holds small parsing helpers shared by the HTTP layer.
package utils

import "strconv"

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty or
// not an integer.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseIndex reads a zero-based list position from a path segment. Anything
// other than plain decimal digits yields -1, which callers reject as out of
// range.
func ParseIndex(s string) int {
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
	}
	return AtoiDefault(s, -1)
}
