package acl

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// QuotePublisherConfig contains configuration for the push adapter.
type QuotePublisherConfig struct {
	Client *clients.Client
	Path   string
}

// QuotePublisher implements ports.QuotePublisher by POSTing the whole store.
// The response body is ignored; only the status matters.
type QuotePublisher struct {
	Endpoint
}

// externalQuote is the wire shape accepted by the push endpoint.
type externalQuote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	ID       string `json:"id,omitempty"`
}

// NewQuotePublisher creates a new push adapter.
// Panics if Client is nil.
func NewQuotePublisher(cfg QuotePublisherConfig) *QuotePublisher {
	return &QuotePublisher{Endpoint: NewEndpoint(cfg.Client, cfg.Path)}
}

// PublishQuotes sends quotes to the push endpoint.
func (p *QuotePublisher) PublishQuotes(ctx context.Context, quotes []domain.Quote) error {
	payload, err := mapEach(quotes, toExternalQuote)
	if err != nil {
		return err
	}

	if err := p.Send(ctx, payload, "push quotes"); err != nil {
		return err
	}

	logging.FromContext(ctx).DebugContext(ctx, "pushed quotes",
		slog.String("downstream", p.ServiceName()),
		slog.Int("count", len(payload)))

	return nil
}

func toExternalQuote(q domain.Quote) (externalQuote, error) {
	if q.Text == "" {
		return externalQuote{}, domain.NewValidationError("text", "is required")
	}

	return externalQuote{Text: q.Text, Category: q.Category, ID: q.ID}, nil
}
