package acl

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// QuoteSourceConfig contains configuration for the quote source adapter.
type QuoteSourceConfig struct {
	// Client is the HTTP client to use for requests. Its BaseURL points at
	// the host serving the snapshot.
	Client *clients.Client

	// Path is the snapshot path, e.g. /server-quotes.json.
	Path string
}

// QuoteSource implements ports.QuoteSource by reading a JSON array snapshot.
type QuoteSource struct {
	Endpoint
}

// NewQuoteSource creates a new quote source adapter.
// Panics if Client is nil.
func NewQuoteSource(cfg QuoteSourceConfig) *QuoteSource {
	return &QuoteSource{Endpoint: NewEndpoint(cfg.Client, cfg.Path)}
}

// FetchQuotes reads the snapshot. Elements that are not JSON objects are
// dropped here; field-level normalization is left to the caller.
func (s *QuoteSource) FetchQuotes(ctx context.Context) ([]domain.RawQuote, error) {
	logger := logging.FromContext(ctx)
	logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", s.Path()))

	data, err := s.Fetch(ctx, "fetch quotes")
	if err != nil {
		return nil, err
	}

	items, err := DecodeArray(data, s.ServiceName())
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.RawQuote, 0, len(items))
	for i, item := range items {
		var raw domain.RawQuote
		if err := json.Unmarshal(item, &raw); err != nil {
			logger.DebugContext(ctx, "dropping non-object item", slog.Int("index", i))
			continue
		}

		quotes = append(quotes, raw)
	}

	logger.Log(ctx, logging.LevelTrace, "translated snapshot",
		slog.Int("items", len(items)),
		slog.Int("kept", len(quotes)))

	return quotes, nil
}

// Name implements ports.HealthChecker.
func (s *QuoteSource) Name() string {
	return s.ServiceName()
}

// Check reports whether the snapshot is reachable.
// Implements ports.HealthChecker.
func (s *QuoteSource) Check(ctx context.Context) error {
	_, err := s.Fetch(ctx, "health check")
	return err
}
