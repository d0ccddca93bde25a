package usecase

import (
	"regexp"
	"strings"
)

var nameSpacePattern = regexp.MustCompile(`\s+`)

// normalizeName lowercases, trims and collapses internal whitespace
func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return nameSpacePattern.ReplaceAllString(n, " ")
}

// collapseSpaces trims name and joins its words with single spaces, keeping case
func collapseSpaces(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// sameName compares two item names after normalization
func sameName(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

// isPlaceholderEcho reports whether a looked-up name is only a placeholder
// echo of one of the candidates ("Produkt 123", "product 123" or "123").
// A real product literally named that way is discarded as well.
func isPlaceholderEcho(name string, candidates []string) bool {
	n := normalizeName(name)
	for _, c := range candidates {
		lc := normalizeName(c)
		if lc == "" {
			continue
		}
		if n == lc || n == "produkt "+lc || n == "product "+lc {
			return true
		}
	}
	return false
}
