package domain

import (
	"math/rand/v2"
	"strings"
)

// NoQuotesMessage is shown when the active filter matches nothing.
const NoQuotesMessage = "No quotes in this category. Add one!"

// Selector picks a uniformly random quote from a filtered candidate set.
type Selector struct {
	intn func(n int) int
}

// NewSelector creates a selector backed by the global random source.
func NewSelector() *Selector {
	return &Selector{intn: rand.IntN}
}

// NewSelectorWithSource creates a selector driven by the given source.
// Intended for deterministic tests.
func NewSelectorWithSource(src rand.Source) *Selector {
	r := rand.New(src)
	return &Selector{intn: r.IntN}
}

// Candidates returns the quotes eligible under filter.
// "all" (or blank) keeps every quote; otherwise categories are compared case-insensitively.
func Candidates(quotes []Quote, filter string) []Quote {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" || f == CategoryAll {
		return quotes
	}

	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if NormalizeCategory(q.Category) == f {
			out = append(out, q)
		}
	}

	return out
}

// Pick returns a random candidate. ok is false when no quote matches the filter.
func (s *Selector) Pick(quotes []Quote, filter string) (Quote, bool) {
	candidates := Candidates(quotes, filter)
	if len(candidates) == 0 {
		return Quote{}, false
	}

	return candidates[s.intn(len(candidates))], true
}
