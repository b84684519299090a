package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// QuoteStore owns the quote collection, the category filter and the
// conflicts retained from the last merge. Every mutation re-serializes the
// full collection to the key-value store and recomputes the category index
// before the filter is revalidated.
//
// Persistence failures are logged and the in-memory state stays authoritative.
type QuoteStore struct {
	mu         sync.RWMutex
	kv         ports.KeyValueStore
	quotes     []domain.Quote
	categories []string
	filter     string
	conflicts  []domain.Conflict
}

// NewQuoteStore creates a store holding the default seed set.
// Call Restore to load persisted state.
func NewQuoteStore(kv ports.KeyValueStore) *QuoteStore {
	s := &QuoteStore{kv: kv, filter: domain.CategoryAll}
	s.setQuotes(domain.DefaultQuotes())

	return s
}

// Restore loads quotes and the selected category. Missing, empty or
// unparsable quotes fall back to the default seed set; a filter that is not
// a current category falls back to "all".
func (s *QuoteStore) Restore(ctx context.Context) {
	logger := logging.FromContext(ctx)

	results := loadKeys(ctx, s.kv, ports.KeyQuotes, ports.KeySelectedCategory)

	quotes := domain.DefaultQuotes()

	switch stored := results[0]; {
	case stored.err != nil:
		logger.WarnContext(ctx, "loading quotes failed, using defaults", slog.Any("error", stored.err))
	case stored.found:
		decoded, err := decodeQuotes(stored.value)
		if err != nil {
			logger.WarnContext(ctx, "stored quotes unreadable, using defaults", slog.Any("error", err))
		} else if len(decoded) > 0 {
			quotes = decoded
		}
	}

	filter := domain.CategoryAll
	if stored := results[1]; stored.err != nil {
		logger.WarnContext(ctx, "loading selected category failed", slog.Any("error", stored.err))
	} else if stored.found {
		filter = stored.value
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setQuotes(quotes)
	s.filter = domain.ValidateFilter(filter, s.categories)
	s.conflicts = nil

	logger.InfoContext(ctx, "quote store restored",
		slog.Int("quotes", len(s.quotes)),
		slog.String("filter", s.filter))
}

func decodeQuotes(raw string) ([]domain.Quote, error) {
	var quotes []domain.Quote
	if err := json.Unmarshal([]byte(raw), &quotes); err != nil {
		return nil, domain.NewParseError(ports.KeyQuotes, err.Error())
	}

	out := quotes[:0]
	for _, q := range quotes {
		if q.Text == "" {
			continue
		}
		out = append(out, q.Normalize())
	}

	return out, nil
}

// Snapshot returns a copy of the quotes.
func (s *QuoteStore) Snapshot() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.quotes)
}

// Len returns the number of quotes.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.quotes)
}

// Filter returns the active category filter.
func (s *QuoteStore) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter
}

// Categories returns the current category index.
func (s *QuoteStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.categories)
}

// View returns quotes and filter under one lock.
func (s *QuoteStore) View() ([]domain.Quote, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.quotes), s.filter
}

// Conflicts returns the conflicts retained from the last merge.
func (s *QuoteStore) Conflicts() []domain.Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.conflicts)
}

// SetFilter validates and persists the category filter and returns the
// effective value.
func (s *QuoteStore) SetFilter(ctx context.Context, filter string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter = domain.ValidateFilter(filter, s.categories)
	s.saveFilter(ctx)

	return s.filter
}

// Append adds quotes to the end of the collection.
func (s *QuoteStore) Append(ctx context.Context, quotes ...domain.Quote) {
	s.mutate(ctx, func(current []domain.Quote) []domain.Quote {
		return append(current, quotes...)
	})
}

// AppendUnique appends the quotes whose (text, category) pair is not already
// stored or earlier in quotes, and returns the ones it added. The check and
// the append happen under one lock.
func (s *QuoteStore) AppendUnique(ctx context.Context, quotes ...domain.Quote) []domain.Quote {
	var added []domain.Quote

	s.mutate(ctx, func(current []domain.Quote) []domain.Quote {
		seen := make(map[[2]string]struct{}, len(current)+len(quotes))
		for _, q := range current {
			seen[[2]string{q.Text, q.Category}] = struct{}{}
		}

		for _, q := range quotes {
			key := [2]string{q.Text, q.Category}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			added = append(added, q)
		}

		return append(current, added...)
	})

	return added
}

// ApplyMerge merges a server snapshot into the collection atomically and
// retains the resulting conflicts.
func (s *QuoteStore) ApplyMerge(ctx context.Context, server []domain.Quote, opts domain.MergeOptions) domain.MergeResult {
	var result domain.MergeResult

	s.mutate(ctx, func(current []domain.Quote) []domain.Quote {
		result = domain.Merge(current, server, opts)
		s.conflicts = result.Conflicts

		return result.Quotes
	})

	return result
}

// ResolveConflict writes the side of retained conflict index selected by r
// back to the conflict's position. The conflict stays in the list.
//
// An unknown index is a domain.NotFoundError. A position that no longer holds
// either side of the conflict is a domain.ConflictError.
func (s *QuoteStore) ResolveConflict(ctx context.Context, index int, r domain.Resolution) (domain.Conflict, error) {
	var (
		c   domain.Conflict
		err error
	)

	s.mutate(ctx, func(current []domain.Quote) []domain.Quote {
		if index < 0 || index >= len(s.conflicts) {
			err = domain.NewNotFoundError("conflict", strconv.Itoa(index))
			return current
		}

		c = s.conflicts[index]
		if c.LocalIndex < 0 || c.LocalIndex >= len(current) ||
			!holds(current[c.LocalIndex], c.Local, c.Server) {
			err = domain.NewConflictErrorWithDetails("conflict",
				"the recorded position no longer holds the conflicting quote",
				fmt.Sprintf("local index %d", c.LocalIndex))

			return current
		}

		current[c.LocalIndex] = c.Pick(r).Normalize()

		return current
	})

	return c, err
}

func holds(q domain.Quote, sides ...domain.Quote) bool {
	for _, side := range sides {
		side = side.Normalize()
		if q.Text == side.Text && q.Category == side.Category {
			return true
		}
	}

	return false
}

// Reset restores the default seed set, clears retained conflicts and resets
// the filter to "all".
func (s *QuoteStore) Reset(ctx context.Context) {
	s.mutate(ctx, func([]domain.Quote) []domain.Quote {
		s.conflicts = nil
		s.filter = domain.CategoryAll

		return domain.DefaultQuotes()
	})
}

// mutate applies fn under the write lock, then persists and re-indexes.
// fn may modify the slice it is given.
func (s *QuoteStore) mutate(ctx context.Context, fn func([]domain.Quote) []domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setQuotes(fn(s.quotes))
	s.saveQuotes(ctx)

	s.filter = domain.ValidateFilter(s.filter, s.categories)
	s.saveFilter(ctx)
}

// setQuotes must be called with the lock held.
func (s *QuoteStore) setQuotes(quotes []domain.Quote) {
	s.quotes = quotes
	s.categories = domain.Categories(quotes)
}

func (s *QuoteStore) saveQuotes(ctx context.Context) {
	data, err := json.Marshal(s.quotes)
	if err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "encoding quotes failed", slog.Any("error", err))
		return
	}

	if err := s.kv.Save(ctx, ports.KeyQuotes, string(data)); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "saving quotes failed", slog.Any("error", err))
	}
}

func (s *QuoteStore) saveFilter(ctx context.Context) {
	if err := s.kv.Save(ctx, ports.KeySelectedCategory, s.filter); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "saving selected category failed", slog.Any("error", err))
	}
}
