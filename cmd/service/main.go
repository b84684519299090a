// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-sync-service/internal/bootstrap"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/telemetry"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
// An unset Commit falls back to the VCS revision embedded by the toolchain.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := bootstrap.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := tel.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown", slog.Any("error", shutdownErr))
		}
	}()

	graph, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := graph.Close(); closeErr != nil {
			logger.Error("closing storage", slog.Any("error", closeErr))
		}
	}()

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(graph.Health, buildInfo, graph.Sync)
	quoteHandler := handlers.NewQuoteHandler(graph.Dispatcher)

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.NewRouterConfig(cfg, healthHandler, quoteHandler))

	// Honours flags.sync-interval-seconds over sync.interval.
	if cfg.Sync.Enabled {
		if err := graph.Scheduler.Start(ctx, graph.SyncInterval(ctx)); err != nil {
			return fmt.Errorf("starting sync scheduler: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
		// Waits for an in-flight sync so its merge is persisted before storage closes.
		<-graph.Scheduler.Stop().Done()

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	logger.Info("stopped")

	return nil
}
