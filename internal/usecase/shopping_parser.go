package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pantrylens/backend/internal/domain"
)

// Compiled patterns for spoken shopping commands (German)
var (
	utteranceJoinerPattern = regexp.MustCompile(`\b(und|sowie|plus|mit)\b`)
	utteranceFillerPattern = regexp.MustCompile(`(?i)^(bitte|füge|setz|setze|auf|meine|meiner|liste|einkaufsliste)\s+`)
	utteranceAmountPattern = regexp.MustCompile(`(?i)^(\d+)\s*(x|mal|stk|stück|packung|packungen)?\s+(.+)$`)
)

// ParseShoppingUtterance splits a voice command such as
// "setze 2 packungen milch und brot auf meine einkaufsliste" into entries.
// Names are lowercased with collapsed whitespace; quantity defaults to 1.
func ParseShoppingUtterance(utterance string) []domain.ShoppingEntry {
	cleaned := strings.ToLower(strings.TrimSpace(utterance))
	if cleaned == "" {
		return nil
	}

	normalized := utteranceJoinerPattern.ReplaceAllString(cleaned, ",")
	normalized = strings.ReplaceAll(normalized, ";", ",")

	var entries []domain.ShoppingEntry
	for _, part := range strings.Split(normalized, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}

		for {
			updated := strings.TrimSpace(utteranceFillerPattern.ReplaceAllString(candidate, ""))
			if updated == candidate {
				break
			}
			candidate = updated
		}

		quantity := 1
		if m := utteranceAmountPattern.FindStringSubmatch(candidate); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 1 {
				quantity = n
			}
			candidate = strings.TrimSpace(m[3])
		}

		candidate = strings.Trim(candidate, " .")
		if candidate == "" {
			continue
		}
		entries = append(entries, domain.ShoppingEntry{Name: collapseSpaces(candidate), Quantity: quantity})
	}
	return entries
}
