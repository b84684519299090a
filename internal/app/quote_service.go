// Package app contains application services that orchestrate use cases.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// ExportFilenameLayout is the time layout of export file names.
const ExportFilenameLayout = "quotes-export-20060102-150405.json"

// QuoteService orchestrates the quote use cases over a QuoteStore.
// It depends on port interfaces, not concrete implementations.
type QuoteService struct {
	store    *QuoteStore
	sessions ports.SessionStore
	notifier ports.Notifier
	selector *domain.Selector
}

// QuoteServiceConfig contains the quote service dependencies.
type QuoteServiceConfig struct {
	Store    *QuoteStore
	Sessions ports.SessionStore
	Notifier ports.Notifier

	// Selector defaults to domain.NewSelector().
	Selector *domain.Selector
}

// NewQuoteService creates a new quote service.
// Panics if Store or Sessions is nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Store == nil {
		panic("QuoteService: Store is required")
	}

	if cfg.Sessions == nil {
		panic("QuoteService: Sessions is required")
	}

	selector := cfg.Selector
	if selector == nil {
		selector = domain.NewSelector()
	}

	return &QuoteService{
		store:    cfg.Store,
		sessions: cfg.Sessions,
		notifier: cfg.Notifier,
		selector: selector,
	}
}

// ShowResult is the outcome of a selection. Quote is nil when nothing matched.
type ShowResult struct {
	Available bool          `json:"available"`
	Quote     *domain.Quote `json:"quote,omitempty"`
	Message   string        `json:"message,omitempty"`
	Filter    string        `json:"filter"`
}

// ShowNext picks a random quote under the active filter and records it as the
// session's last viewed quote.
func (s *QuoteService) ShowNext(ctx context.Context, session string) ShowResult {
	quotes, filter := s.store.View()

	q, ok := s.selector.Pick(quotes, filter)
	if !ok {
		if s.notifier != nil {
			s.notifier.Notify(ctx, session, ports.Notice{Level: ports.NoticeInfo, Message: domain.NoQuotesMessage})
		}

		return ShowResult{Message: domain.NoQuotesMessage, Filter: filter}
	}

	s.recordLastViewed(ctx, session, q)

	return ShowResult{Available: true, Quote: &q, Filter: filter}
}

// SetFilter changes the category filter and shows the next quote.
func (s *QuoteService) SetFilter(ctx context.Context, session, category string) ShowResult {
	s.store.SetFilter(ctx, category)

	return s.ShowNext(ctx, session)
}

// CategoryView lists the category index and the active filter.
type CategoryView struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// Categories returns the current category index.
func (s *QuoteService) Categories(_ context.Context) CategoryView {
	return CategoryView{Categories: s.store.Categories(), Selected: s.store.Filter()}
}

// AddResult reports whether AddQuote stored anything.
type AddResult struct {
	Added bool          `json:"added"`
	Quote *domain.Quote `json:"quote,omitempty"`
}

// AddQuote appends a quote. Blank text or category is a silent no-op.
// On success the filter is reset to "all" and the quote becomes the
// session's last viewed quote.
func (s *QuoteService) AddQuote(ctx context.Context, session, text, category string) AddResult {
	text = strings.TrimSpace(text)
	category = strings.TrimSpace(category)

	if text == "" || category == "" {
		logging.FromContext(ctx).DebugContext(ctx, "ignoring incomplete quote")
		return AddResult{}
	}

	q := domain.Quote{Text: text, Category: domain.NormalizeCategory(category)}
	s.store.Append(ctx, q)
	s.store.SetFilter(ctx, domain.CategoryAll)
	s.recordLastViewed(ctx, session, q)

	return AddResult{Added: true, Quote: &q}
}

// List returns a copy of every stored quote.
func (s *QuoteService) List(_ context.Context) []domain.Quote {
	return s.store.Snapshot()
}

// ImportResult counts the accepted and skipped items of an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import adds the quotes of a JSON array payload. Items need a string text;
// a blank category becomes "uncategorized". Items already present by
// (text, category), in the store or earlier in the payload, are skipped.
//
// Invalid JSON, a non-array payload or an array without a single valid item
// is a domain.ParseError and leaves the store untouched.
func (s *QuoteService) Import(ctx context.Context, payload []byte) (ImportResult, error) {
	trimmed := bytes.TrimSpace(payload)
	if !bytes.HasPrefix(trimmed, []byte("[")) {
		if !json.Valid(trimmed) {
			return ImportResult{}, domain.NewParseError("import file", "invalid JSON")
		}

		return ImportResult{}, domain.NewParseError("import file", "expected a JSON array of quotes")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return ImportResult{}, domain.NewParseError("import file", "invalid JSON")
	}

	valid := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		var raw domain.RawQuote
		if err := json.Unmarshal(item, &raw); err != nil || !raw.TextIsString() {
			continue
		}

		if q, ok := raw.ToQuote(); ok {
			valid = append(valid, q)
		}
	}

	if len(valid) == 0 {
		return ImportResult{}, domain.NewParseError("import file", "no valid quotes found")
	}

	added := s.store.AppendUnique(ctx, valid...)

	logging.FromContext(ctx).InfoContext(ctx, "quotes imported",
		slog.Int("imported", len(added)),
		slog.Int("skipped", len(items)-len(added)))

	return ImportResult{Imported: len(added), Skipped: len(items) - len(added)}, nil
}

// ExportResult is a pretty-printed JSON document of the store.
type ExportResult struct {
	Filename string
	Data     []byte
}

// Export renders the full store as two-space indented JSON.
func (s *QuoteService) Export(_ context.Context, now time.Time) (ExportResult, error) {
	data, err := json.MarshalIndent(s.store.Snapshot(), "", "  ")
	if err != nil {
		return ExportResult{}, err
	}

	return ExportResult{Filename: now.Format(ExportFilenameLayout), Data: data}, nil
}

// Reset restores the default seed set.
func (s *QuoteService) Reset(ctx context.Context) []domain.Quote {
	s.store.Reset(ctx)
	logging.FromContext(ctx).InfoContext(ctx, "quote store reset to defaults")

	return s.store.Snapshot()
}

// LastViewed returns the last quote shown in session.
func (s *QuoteService) LastViewed(ctx context.Context, session string) (domain.Quote, bool) {
	raw, found, err := s.sessions.Load(ctx, session, ports.KeyLastViewed)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "loading last viewed quote failed", slog.Any("error", err))
		return domain.Quote{}, false
	}

	if !found {
		return domain.Quote{}, false
	}

	var q domain.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return domain.Quote{}, false
	}

	return q, true
}

func (s *QuoteService) recordLastViewed(ctx context.Context, session string, q domain.Quote) {
	if session == "" {
		return
	}

	data, err := json.Marshal(q)
	if err != nil {
		return
	}

	if err := s.sessions.Save(ctx, session, ports.KeyLastViewed, string(data)); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "saving last viewed quote failed", slog.Any("error", err))
	}
}
