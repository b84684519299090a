package bootstrap

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.LoadFrom("../../configs", "test")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	return cfg
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	NewLogger(cfg, &buf).Info("hello")

	assert.Contains(t, buf.String(), `"service_name":"quote-sync-service"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config, dir string)
	}{
		{name: "memory", mutate: func(*config.Config, string) {}},
		{name: "sqlite", mutate: func(cfg *config.Config, dir string) {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.Path = filepath.Join(dir, "quotes.db")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg, t.TempDir())

			var logs bytes.Buffer
			g, err := Build(context.Background(), cfg, NewLogger(cfg, &logs), Options{Registerer: prometheus.NewRegistry()})
			require.NoError(t, err)

			assert.Equal(t, domain.DefaultQuotes(), g.Store.Snapshot())
			assert.Equal(t, domain.CategoryAll, g.Store.Filter())
			assert.Equal(t, cfg.Sync.PushEnabled, g.Flags.IsEnabled(context.Background(), ports.FlagSyncPush, !cfg.Sync.PushEnabled))

			result, err := g.Dispatcher.Dispatch(context.Background(), app.IntentCategories, app.Request{})
			require.NoError(t, err)
			assert.Equal(t, domain.Categories(domain.DefaultQuotes()), result.(app.CategoryView).Categories)

			health := g.Health.CheckAll(context.Background())
			require.Contains(t, health.Checks, g.Storage.Name())
			assert.Equal(t, ports.HealthStatusHealthy, health.Checks[g.Storage.Name()].Status)
			assert.Contains(t, health.Checks, g.Source.Name())

			assert.Zero(t, g.Scheduler.Interval())
			require.NoError(t, g.Close())
		})
	}
}

func TestBuild_SQLitePersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "quotes.db")

	build := func() *Graph {
		g, err := Build(context.Background(), cfg, NewLogger(cfg, &bytes.Buffer{}), Options{Registerer: prometheus.NewRegistry()})
		require.NoError(t, err)

		return g
	}

	first := build()
	first.Quotes.AddQuote(context.Background(), "s", "Persist me.", "memory")
	require.NoError(t, first.Close())

	second := build()
	defer second.Close()

	assert.Contains(t, second.Store.Snapshot(), domain.Quote{Text: "Persist me.", Category: "memory"})
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		reg     func() prometheus.Registerer
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(cfg *config.Config) { cfg.Storage.Driver = "redis" },
			wantErr: "opening storage",
		},
		{
			name: "metrics already registered",
			reg: func() prometheus.Registerer {
				reg := prometheus.NewRegistry()
				cfg := testConfig(t)
				g, err := Build(context.Background(), cfg, NewLogger(cfg, &bytes.Buffer{}), Options{Registerer: reg})
				require.NoError(t, err)
				require.NoError(t, g.Close())

				return reg
			},
			wantErr: "registering sync metrics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			reg := prometheus.Registerer(prometheus.NewRegistry())
			if tt.reg != nil {
				reg = tt.reg()
			}

			_, err := Build(context.Background(), cfg, NewLogger(cfg, &bytes.Buffer{}), Options{Registerer: reg})
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGraph_SyncInterval(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		want  time.Duration
	}{
		{name: "configured", want: time.Minute},
		{name: "flag override", flags: map[string]string{ports.FlagSyncIntervalSeconds: "5"}, want: 5 * time.Second},
		{name: "malformed flag", flags: map[string]string{ports.FlagSyncIntervalSeconds: "soon"}, want: time.Minute},
		{name: "zero flag", flags: map[string]string{ports.FlagSyncIntervalSeconds: "0"}, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Sync.Interval = time.Minute
			cfg.Flags = tt.flags

			g, err := Build(context.Background(), cfg, NewLogger(cfg, &bytes.Buffer{}), Options{Registerer: prometheus.NewRegistry()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = g.Close() })

			assert.Equal(t, tt.want, g.SyncInterval(context.Background()))
		})
	}
}
