//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "github.com/jsamuelsen/quote-sync-service/internal/adapters/http"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-sync-service/internal/bootstrap"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
)

// defaultSnapshot is served on /server-quotes.json until a test replaces it.
const defaultSnapshot = `[
  {"id": "srv-1", "text": "Simplicity is the ultimate sophistication.", "category": "design"},
  {"id": "srv-2", "text": "Talk is cheap. Show me the code.", "category": "programming"}
]`

// service is an in-process quote-sync-service whose quote source is its own
// snapshot route.
type service struct {
	URL      string
	Snapshot string
	Graph    *bootstrap.Graph
	Logs     *bytes.Buffer

	server *httptest.Server
	dir    string
}

// startService builds the full graph on the test profile. mutate runs after
// the source URL and snapshot path are set.
func startService(mutate func(cfg *config.Config)) (*service, error) {
	cfg, err := config.LoadFrom("../../configs", "test")
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "quote-sync-integration-")
	if err != nil {
		return nil, err
	}

	s := &service{dir: dir, Snapshot: filepath.Join(dir, "server-quotes.json"), Logs: &bytes.Buffer{}}
	if err := s.SetSnapshot(defaultSnapshot); err != nil {
		s.Close()
		return nil, err
	}

	srv := apihttp.New(&cfg.Server, bootstrap.NewLogger(cfg, s.Logs))
	s.server = httptest.NewServer(srv.Engine())
	s.URL = s.server.URL

	cfg.Services.QuoteSource.BaseURL = s.URL
	cfg.Services.QuoteSource.Path = apihttp.SnapshotRoute
	cfg.Static.ServerQuotesPath = s.Snapshot
	cfg.Storage.Path = filepath.Join(dir, "quotes.db")

	if mutate != nil {
		mutate(cfg)
	}

	if err := cfg.Validate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := bootstrap.NewLogger(cfg, s.Logs)

	s.Graph, err = bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		s.Close()
		return nil, err
	}

	health := handlers.NewHealthHandler(s.Graph.Health, handlers.NewBuildInfo("test", "test", "test"), s.Graph.Sync)
	quotes := handlers.NewQuoteHandler(s.Graph.Dispatcher)
	apihttp.SetupRouter(srv.Engine(), apihttp.NewRouterConfig(cfg, health, quotes))

	return s, nil
}

// SetSnapshot replaces the served snapshot document.
func (s *service) SetSnapshot(doc string) error {
	return os.WriteFile(s.Snapshot, []byte(doc), 0o600)
}

// Close stops the server and removes every file the service created.
func (s *service) Close() {
	if s.server != nil {
		s.server.Close()
	}

	if s.Graph != nil {
		_ = s.Graph.Close()
	}

	_ = os.RemoveAll(s.dir)
}
