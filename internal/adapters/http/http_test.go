package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/notify"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/storage"
	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/mocks"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxRequestSize:  100,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_ServeUntilCancelled(t *testing.T) {
	srv := New(testServerConfig(), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testServerConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port

	srv := New(cfg, discardLogger())
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", cfg.Port), srv.Addr())

	err = srv.Run(context.Background())
	assert.ErrorContains(t, err, "listening on")
}

func TestMaxBodySize(t *testing.T) {
	srv := New(testServerConfig(), discardLogger())
	srv.Engine().POST("/upload", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": len(body)})
	})

	tests := []struct {
		name     string
		size     int
		wantCode int
	}{
		{name: "under the limit", size: 50, wantCode: http.StatusOK},
		{name: "over the limit", size: 500, wantCode: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", tt.size))))

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

type routerFixture struct {
	engine *gin.Engine
	source *mocks.MockQuoteSource
}

func newRouterFixture(t *testing.T, mutate func(*RouterConfig)) *routerFixture {
	t.Helper()

	store := app.NewQuoteStore(storage.NewMemoryStore())
	inbox := notify.NewInbox(notify.DefaultCapacity, time.Hour)
	source := mocks.NewMockQuoteSource(t)

	quotes := app.NewQuoteService(app.QuoteServiceConfig{
		Store:    store,
		Sessions: storage.NewSessionStore(time.Hour),
		Notifier: inbox,
	})
	syncs := app.NewSyncService(app.SyncServiceConfig{Store: store, Source: source})

	snapshot := filepath.Join(t.TempDir(), "server-quotes.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(`[{"id":"srv-1","text":"Served"}]`), 0o600))

	cfg := RouterConfig{
		ServiceName:   "quote-sync-service",
		AuthConfig:    &config.AuthConfig{AdminRole: "quote-admin"},
		Session:       config.SessionConfig{TTL: time.Hour, CookieName: "quote_session", Header: "X-Session-ID"},
		RateLimit:     config.RateLimitConfig{RequestsPerSecond: 100, Burst: 10},
		SnapshotPath:  snapshot,
		HealthHandler: handlers.NewHealthHandler(ports.NewHealthRegistry(), handlers.BuildInfo{}, syncs),
		QuoteHandler:  handlers.NewQuoteHandler(app.NewDispatcher(quotes, syncs, inbox)),
		Timeout:       DefaultRequestTimeout,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	engine := gin.New()
	SetupRouter(engine, cfg)

	return &routerFixture{engine: engine, source: source}
}

func (f *routerFixture) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	return w
}

func TestSetupRouter_Routes(t *testing.T) {
	f := newRouterFixture(t, nil)

	tests := []struct {
		name        string
		path        string
		wantCode    int
		wantSession bool
	}{
		{name: "liveness", path: "/-/live", wantCode: http.StatusOK},
		{name: "sync status", path: "/-/sync", wantCode: http.StatusOK},
		{name: "snapshot", path: SnapshotRoute, wantCode: http.StatusOK},
		{name: "api", path: "/api/v1/quotes/random", wantCode: http.StatusOK, wantSession: true},
		{name: "unknown", path: "/api/v2/quotes", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
			assert.Equal(t, tt.wantSession, w.Header().Get("X-Session-ID") != "")
		})
	}
}

func TestSetupRouter_SnapshotFeedsSync(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(http.MethodGet, SnapshotRoute, nil)

	var raw []domain.RawQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	q, ok := raw[0].ToQuote()
	require.True(t, ok)
	assert.Equal(t, domain.Quote{Text: "Served", Category: domain.CategoryUncategorized, ID: "srv-1"}, q)
}

func TestSetupRouter_NoSnapshot(t *testing.T) {
	f := newRouterFixture(t, func(cfg *RouterConfig) { cfg.SnapshotPath = "" })

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, SnapshotRoute, nil).Code)
}

func TestSetupRouter_RateLimitsSync(t *testing.T) {
	f := newRouterFixture(t, func(cfg *RouterConfig) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.01, Burst: 1}
	})
	f.source.EXPECT().FetchQuotes(mock.Anything).Return(nil, nil).Once()

	first := f.do(http.MethodPost, "/api/v1/sync", nil)
	second := f.do(http.MethodPost, "/api/v1/intents/sync-now", nil)
	other := f.do(http.MethodPost, "/api/v1/intents/list", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestSetupRouter_AdminRole(t *testing.T) {
	tests := []struct {
		name     string
		auth     *config.AuthConfig
		headers  map[string]string
		wantCode int
	}{
		{name: "auth disabled", auth: &config.AuthConfig{AdminRole: "quote-admin"}, wantCode: http.StatusOK},
		{name: "no auth config", auth: nil, wantCode: http.StatusOK},
		{
			name:     "anonymous",
			auth:     &config.AuthConfig{Enabled: true, AdminRole: "quote-admin"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "missing role",
			auth:     &config.AuthConfig{Enabled: true, AdminRole: "quote-admin"},
			headers:  map[string]string{"X-User-ID": "u1", "X-User-Roles": "reader"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin",
			auth:     &config.AuthConfig{Enabled: true, AdminRole: "quote-admin"},
			headers:  map[string]string{"X-User-ID": "u1", "X-User-Roles": "reader, quote-admin"},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t, func(cfg *RouterConfig) { cfg.AuthConfig = tt.auth })

			w := f.do(http.MethodPost, "/api/v1/quotes/reset", tt.headers)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSetupRouter_RecoversPanics(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.engine.GET("/boom", func(*gin.Context) { panic("boom") })

	w := f.do(http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewRouterConfig(t *testing.T) {
	cfg := &config.Config{
		Telemetry: config.TelemetryConfig{Enabled: true, ServiceName: "svc"},
		Auth:      config.AuthConfig{AdminRole: "boss"},
		Session:   config.SessionConfig{Header: "X-S"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 2, Burst: 4},
		Static:    config.StaticConfig{ServerQuotesPath: "./data/server-quotes.json"},
	}

	rc := NewRouterConfig(cfg, nil, nil)

	assert.Equal(t, "svc", rc.ServiceName)
	assert.True(t, rc.Tracing)
	assert.Equal(t, "boss", rc.AuthConfig.AdminRole)
	assert.Equal(t, "X-S", rc.Session.Header)
	assert.Equal(t, 4, rc.RateLimit.Burst)
	assert.Equal(t, "./data/server-quotes.json", rc.SnapshotPath)
	assert.Equal(t, DefaultRequestTimeout, rc.Timeout)
}
