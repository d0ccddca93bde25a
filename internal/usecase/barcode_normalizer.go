package usecase

import (
	"regexp"
	"strings"
)

// gs1GTINPattern matches application identifier 01 followed by a 14-digit GTIN
var gs1GTINPattern = regexp.MustCompile(`01(\d{14})`)

// Digits returns only the ASCII digits of s
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ExtractGS1GTIN returns the 14-digit GTIN carried by an AI-01 element in raw.
// The leftmost "01" with 14 digits after it wins.
func ExtractGS1GTIN(raw string) (string, bool) {
	m := gs1GTINPattern.FindStringSubmatch(Digits(raw))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Canonicalize maps every encoding of one product barcode (GS1-128 AI-01,
// GTIN-14, EAN-13 with a leading zero, UPC-A) to the same digits-only key.
// If raw has no digits the trimmed input is returned.
func Canonicalize(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return strings.TrimSpace(raw)
	}

	base := digits
	if gtin, ok := ExtractGS1GTIN(digits); ok {
		base = gtin
	}

	if len(base) == 14 && base[0] == '0' {
		base = base[1:]
	}
	if len(base) == 13 && base[0] == '0' {
		base = base[1:]
	}
	return base
}

// Candidates lists lookup keys for a barcode, most specific first:
// the trimmed raw input, the canonical digits, then the UPC-A/EAN-13 twin.
func Candidates(canonical, raw string) []string {
	out := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(strings.TrimSpace(raw))

	digits := Digits(canonical)
	add(digits)
	switch {
	case len(digits) == 12:
		add("0" + digits)
	case len(digits) == 13 && digits[0] == '0':
		add(digits[1:])
	}

	// Non-numeric payloads canonicalize to themselves
	if digits == "" {
		add(strings.TrimSpace(canonical))
	}
	return out
}

// IsValidGtin checks length (8 to 14 digits) and the GS1 mod-10 check digit
func IsValidGtin(digits string) bool {
	if len(digits) < 8 || len(digits) > 14 {
		return false
	}
	if Digits(digits) != digits {
		return false
	}

	body := digits[:len(digits)-1]
	sum := 0
	weight := 3
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	check := (10 - sum%10) % 10
	return check == int(digits[len(digits)-1]-'0')
}
