package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// leadingSymbols are the junk characters stripped from the front of a
// category before whitelist matching ("?arketing" style typos).
const leadingSymbols = "?!@#$%^*()"

// CategoryCleaner corrects category typos against an ordered whitelist.
// Matching is first-hit-wins in whitelist order, which makes the result
// order-sensitive for ambiguous stripped values; the whitelist must
// therefore stay an ordered list, never a set.
type CategoryCleaner struct {
	whitelist []string
}

// NewCategoryCleaner creates a cleaner for the given ordered whitelist.
func NewCategoryCleaner(whitelist []string) *CategoryCleaner {
	return &CategoryCleaner{whitelist: whitelist}
}

// Clean corrects one raw category cell. Empty input passes through
// unchanged; an exact whitelist member passes through without a ledger
// entry. Otherwise leading symbols are stripped, the whitelist is scanned
// in order (stripped value is a case-insensitive substring of the entry, or
// the entry starts with it), and with no match the stripped value is
// capitalized verbatim. Any change from the raw value is recorded.
func (c *CategoryCleaner) Clean(raw string, index int, tracker *QualityTracker) string {
	if raw == "" {
		return raw
	}

	for _, valid := range c.whitelist {
		if raw == valid {
			return raw
		}
	}

	stripped := strings.TrimSpace(strings.TrimLeft(raw, leadingSymbols))
	lower := strings.ToLower(stripped)

	corrected := ""
	for _, valid := range c.whitelist {
		validLower := strings.ToLower(valid)
		if strings.Contains(validLower, lower) || strings.HasPrefix(validLower, lower) {
			corrected = valid
			break
		}
	}
	if corrected == "" {
		corrected = capitalize(stripped)
	}

	if corrected != raw {
		tracker.AddCleaned(index, FieldCategory, raw, corrected)
	}
	return corrected
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
