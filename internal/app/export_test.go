package app

import (
	"context"
	"slices"

	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

// Replace swaps the whole collection.
func (s *QuoteStore) Replace(ctx context.Context, quotes []domain.Quote) {
	s.mutate(ctx, func([]domain.Quote) []domain.Quote {
		return slices.Clone(quotes)
	})
}
