// Package strutil holds small string helpers shared across request
// normalization and validation messages.
package strutil

import (
	"strings"
	"unicode"
)

// TrimStrings trims whitespace from each pointed-to string in place.
func TrimStrings(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

// ToSnakeCase converts CamelCase identifiers to snake_case, keeping
// acronym runs intact (SKUIDs -> sku_ids).
func ToSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
