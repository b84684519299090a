// Package bootstrap wires configuration, adapters and application services
// into a runnable graph shared by the service and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/flags"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/notify"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/storage"
	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// Options tunes Build.
type Options struct {
	// Registerer receives the sync metrics. Nil uses the default registerer.
	Registerer prometheus.Registerer
}

// Graph holds every long-lived component of a running process.
type Graph struct {
	Config *config.Config
	Logger *slog.Logger

	Storage  storage.Store
	Sessions *storage.SessionStore
	Inbox    *notify.Inbox
	Flags    *flags.Static
	Source   *acl.QuoteSource

	Store      *app.QuoteStore
	Quotes     *app.QuoteService
	Sync       *app.SyncService
	Dispatcher *app.Dispatcher
	Scheduler  *app.Scheduler
	Health     *ports.DefaultHealthRegistry
}

// SyncInterval is the period of the sync driver: sync.interval unless the
// sync-interval-seconds flag overrides it.
func (g *Graph) SyncInterval(ctx context.Context) time.Duration {
	if secs := g.Flags.GetInt(ctx, ports.FlagSyncIntervalSeconds, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}

	return g.Config.Sync.Interval
}

// NewLogger builds the process logger from the log section, writing to w.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, w)
}

// Build opens storage, restores the quote store and wires the services.
// The caller owns the returned graph and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Graph, error) {
	ctx = logging.WithContext(ctx, logger)

	kv, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	g := &Graph{
		Config:   cfg,
		Logger:   logger,
		Storage:  kv,
		Sessions: storage.NewSessionStore(cfg.Session.TTL),
		Inbox:    notify.NewInbox(notify.DefaultCapacity, cfg.Session.TTL),
		Flags:    flags.NewStatic(cfg.Flags).With(ports.FlagSyncPush, strconv.FormatBool(cfg.Sync.PushEnabled)),
		Health:   ports.NewHealthRegistry(),
	}

	if err := g.wire(ctx, opts); err != nil {
		return nil, errors.Join(err, kv.Close())
	}

	return g, nil
}

func (g *Graph) wire(ctx context.Context, opts Options) error {
	cfg := g.Config

	sourceClient, err := newClient(cfg, cfg.Services.QuoteSource, g.Logger)
	if err != nil {
		return fmt.Errorf("creating quote source client: %w", err)
	}

	pushClient, err := newClient(cfg, cfg.Services.QuotePush, g.Logger)
	if err != nil {
		return fmt.Errorf("creating quote push client: %w", err)
	}

	g.Source = acl.NewQuoteSource(acl.QuoteSourceConfig{Client: sourceClient, Path: cfg.Services.QuoteSource.Path})
	publisher := acl.NewQuotePublisher(acl.QuotePublisherConfig{Client: pushClient, Path: cfg.Services.QuotePush.Path})

	if err := g.Health.Register(g.Storage); err != nil {
		return fmt.Errorf("registering storage health check: %w", err)
	}

	if err := g.Health.RegisterOptional(g.Source); err != nil {
		return fmt.Errorf("registering quote source health check: %w", err)
	}

	metrics, err := telemetry.NewSyncMetrics(opts.Registerer)
	if err != nil {
		return fmt.Errorf("registering sync metrics: %w", err)
	}

	g.Store = app.NewQuoteStore(g.Storage)
	g.Store.Restore(ctx)

	g.Quotes = app.NewQuoteService(app.QuoteServiceConfig{
		Store:    g.Store,
		Sessions: g.Sessions,
		Notifier: g.Inbox,
	})

	g.Sync = app.NewSyncService(app.SyncServiceConfig{
		Store:     g.Store,
		Source:    g.Source,
		Publisher: publisher,
		Flags:     g.Flags,
		Recorder:  metrics,
		Notifier:  g.Inbox,
		Policy:    cfg.Sync.Policy,
		Timeout:   cfg.Sync.Timeout,
	})

	g.Dispatcher = app.NewDispatcher(g.Quotes, g.Sync, g.Inbox)

	g.Scheduler = app.NewScheduler(app.SchedulerConfig{
		Syncer:  g.Sync,
		Overlap: cfg.Sync.Overlap,
		Sweeper: app.Sweepers{g.Sessions, g.Inbox},
		Logger:  g.Logger,
	})

	return nil
}

func newClient(cfg *config.Config, endpoint config.ServiceEndpointConfig, logger *slog.Logger) (*clients.Client, error) {
	return clients.New(&clients.Config{
		BaseURL:     endpoint.BaseURL,
		ServiceName: endpoint.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
}

// Close stops the scheduler, waits for in-flight syncs and closes storage.
func (g *Graph) Close() error {
	if g.Scheduler != nil {
		<-g.Scheduler.Stop().Done()
	}

	return g.Storage.Close()
}
