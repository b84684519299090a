package domain

import (
	"slices"
	"strings"
)

// Categories returns the distinct normalized categories present in quotes, sorted ascending.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]string, 0, len(quotes))

	for _, q := range quotes {
		c := NormalizeCategory(q.Category)
		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		out = append(out, c)
	}

	slices.Sort(out)

	return out
}

// ValidateFilter returns filter if it is "all" or one of categories, otherwise "all".
// Comparison is case-insensitive.
func ValidateFilter(filter string, categories []string) string {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" || f == CategoryAll {
		return CategoryAll
	}

	if slices.Contains(categories, f) {
		return f
	}

	return CategoryAll
}
