package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// CategoryAll is the filter sentinel that disables category filtering.
	CategoryAll = "all"

	// CategoryUncategorized is used for quotes without a category.
	CategoryUncategorized = "uncategorized"
)

// Quote is the unit record of the quote store.
// Category is always stored lower-cased; ID is an optional external identifier.
type Quote struct {
	// Text is the quote itself. Never empty for a stored quote.
	Text string `json:"text"`

	// Category is the lower-cased category.
	Category string `json:"category"`

	// ID is set for quotes that originate from the remote source.
	ID string `json:"id,omitempty"`
}

// HasID reports whether the quote carries an external identifier.
func (q Quote) HasID() bool {
	return q.ID != ""
}

// SameContent reports whether two quotes carry the same text and category.
func (q Quote) SameContent(other Quote) bool {
	return q.Text == other.Text && q.Category == other.Category
}

// NormalizeCategory lower-cases and trims a category, defaulting blanks to "uncategorized".
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return CategoryUncategorized
	}

	return c
}

// Normalize returns a copy with the category normalized.
func (q Quote) Normalize() Quote {
	q.Category = NormalizeCategory(q.Category)
	return q
}

// RawQuote is a loosely-typed quote as it arrives from the remote source or an
// import file. Text and ID may be any JSON scalar.
type RawQuote struct {
	Text     json.RawMessage `json:"text"`
	Category json.RawMessage `json:"category"`
	ID       json.RawMessage `json:"id"`
}

// ToQuote string-casts text and id and normalizes the category.
// The second return value is false when the text is absent or empty.
func (r RawQuote) ToQuote() (Quote, bool) {
	text := scalarString(r.Text)
	if strings.TrimSpace(text) == "" {
		return Quote{}, false
	}

	return Quote{
		Text:     text,
		Category: NormalizeCategory(scalarString(r.Category)),
		ID:       scalarString(r.ID),
	}, true
}

// TextIsString reports whether the raw text field is a JSON string.
// Import files require a string; remote sources are string-cast.
func (r RawQuote) TextIsString() bool {
	var s string
	return len(r.Text) > 0 && json.Unmarshal(r.Text, &s) == nil
}

// scalarString renders a JSON scalar as a string. Null and non-scalars yield "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// defaultQuotes is the built-in seed set.
var defaultQuotes = []Quote{
	{Text: "Do small things with great love.", Category: "inspiration"},
	{Text: "Simplicity is the ultimate sophistication.", Category: "design"},
	{Text: "Code is like humor. When you have to explain it, it’s bad.", Category: "programming"},
	{Text: "If you want to go fast, go alone. If you want to go far, go together.", Category: "team"},
	{Text: "Perfection is achieved not when there is nothing more to add, but when there is nothing left to take away.", Category: "design"},
}

// DefaultQuotes returns a fresh copy of the default seed set.
func DefaultQuotes() []Quote {
	out := make([]Quote, len(defaultQuotes))
	copy(out, defaultQuotes)

	return out
}

// IsDefault reports whether q belongs to the default seed set (by text).
func IsDefault(q Quote) bool {
	for _, d := range defaultQuotes {
		if d.Text == q.Text {
			return true
		}
	}

	return false
}
