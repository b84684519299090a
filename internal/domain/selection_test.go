package domain

import (
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCategories(t *testing.T) {
	quotes := []Quote{
		{Text: "a", Category: "Zen"},
		{Text: "b", Category: "art"},
		{Text: "c", Category: ""},
		{Text: "d", Category: "zen"},
	}

	assert.Equal(t, []string{"art", "uncategorized", "zen"}, Categories(quotes))
	assert.Empty(t, Categories(nil))
}

func TestValidateFilter(t *testing.T) {
	categories := []string{"design", "team"}

	tests := []struct {
		filter string
		want   string
	}{
		{"all", CategoryAll},
		{"", CategoryAll},
		{"design", "design"},
		{"TEAM", "team"},
		{"missing", CategoryAll},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateFilter(tt.filter, categories))
		})
	}
}

func TestSelector_Pick(t *testing.T) {
	quotes := DefaultQuotes()

	tests := []struct {
		name    string
		filter  string
		wantOK  bool
		wantCat string
	}{
		{name: "all", filter: CategoryAll, wantOK: true},
		{name: "single category", filter: "team", wantOK: true, wantCat: "team"},
		{name: "case insensitive", filter: "DESIGN", wantOK: true, wantCat: "design"},
		{name: "no match", filter: "motivation", wantOK: false},
	}

	s := NewSelectorWithSource(rand.NewPCG(1, 2))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Pick(quotes, tt.filter)

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, Quote{}, got)
				return
			}

			assert.Contains(t, quotes, got)
			if tt.wantCat != "" {
				assert.Equal(t, tt.wantCat, got.Category)
			}
		})
	}
}

func TestSelector_EmptyStore(t *testing.T) {
	_, ok := NewSelector().Pick(nil, CategoryAll)
	assert.False(t, ok)
}

func genQuotes() gopter.Gen {
	categories := []string{"design", "team", "inspiration", "programming"}

	return gen.SliceOf(gen.Struct(reflect.TypeOf(Quote{}), map[string]gopter.Gen{
		"Text":     gen.Identifier(),
		"Category": gen.OneConstOf(categories[0], categories[1], categories[2], categories[3]),
	}))
}

func TestSelector_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("filter all returns a member of a non-empty store", prop.ForAll(
		func(quotes []Quote, seed uint64) bool {
			if len(quotes) == 0 {
				return true
			}

			got, ok := NewSelectorWithSource(rand.NewPCG(seed, seed)).Pick(quotes, CategoryAll)
			return ok && slices.Contains(quotes, got)
		},
		genQuotes(),
		gen.UInt64(),
	))

	properties.Property("present category never yields another category", prop.ForAll(
		func(quotes []Quote, seed uint64) bool {
			s := NewSelectorWithSource(rand.NewPCG(seed, 1))
			for _, c := range Categories(quotes) {
				got, ok := s.Pick(quotes, c)
				if !ok || got.Category != c {
					return false
				}
			}

			return true
		},
		genQuotes(),
		gen.UInt64(),
	))

	properties.Property("absent category signals no quote", prop.ForAll(
		func(quotes []Quote) bool {
			_, ok := NewSelector().Pick(quotes, "not-a-generated-category")
			return !ok
		},
		genQuotes(),
	))

	properties.TestingRun(t)
}
