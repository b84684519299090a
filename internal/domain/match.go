package domain

// Matcher reports whether two quotes denote the same logical record.
type Matcher func(a, b Quote) bool

// IdentityMatcher matches by id when both sides carry one, otherwise by exact text.
func IdentityMatcher() Matcher {
	return func(a, b Quote) bool {
		if a.HasID() && b.HasID() {
			return a.ID == b.ID
		}

		return a.Text == b.Text
	}
}

// FindMatch returns the lowest index in items matching target, or -1.
func FindMatch(items []Quote, target Quote, match Matcher) int {
	for i, item := range items {
		if match(item, target) {
			return i
		}
	}

	return -1
}
