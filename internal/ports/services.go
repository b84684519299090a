// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrStorage, ErrFetch, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

// Storage keys used by the quote store.
const (
	KeyQuotes           = "dynamic_quotes_v1"
	KeySelectedCategory = "selected_category"
	KeyLastViewed       = "last_viewed_quote"
)

// KeyValueStore is the persistent string store backing the quote collection
// and the selected category.
type KeyValueStore interface {
	// Save stores value under key, replacing any previous value.
	// Returns a domain.StorageError on failure.
	Save(ctx context.Context, key, value string) error

	// Load returns the value for key. found is false when the key is absent.
	// Returns a domain.StorageError on failure.
	Load(ctx context.Context, key string) (value string, found bool, err error)
}

// SessionStore keeps per-session values that must not survive a restart.
type SessionStore interface {
	Save(ctx context.Context, session, key, value string) error
	Load(ctx context.Context, session, key string) (value string, found bool, err error)
}

// QuoteSource fetches the remote quote snapshot.
type QuoteSource interface {
	// FetchQuotes returns the raw items of the remote JSON array.
	// Transport failures, non-2xx statuses and non-array bodies are
	// reported as domain.FetchError.
	FetchQuotes(ctx context.Context) ([]domain.RawQuote, error)
}

// QuotePublisher pushes the current store to a remote endpoint.
// Only the response status is inspected.
type QuotePublisher interface {
	PublishQuotes(ctx context.Context, quotes []domain.Quote) error
}

// Notice is a user-visible notification.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notice levels.
const (
	NoticeInfo  = "info"
	NoticeWarn  = "warn"
	NoticeError = "error"
)

// AllSessions addresses a notice to every session, including sessions that
// start after it was sent.
const AllSessions = "*"

// Notifier delivers user-visible notices to a session or to AllSessions.
type Notifier interface {
	Notify(ctx context.Context, session string, notice Notice)
}

// NoticeInbox is a Notifier whose pending notices can be drained per session.
type NoticeInbox interface {
	Notifier
	Drain(ctx context.Context, session string) []Notice
}
