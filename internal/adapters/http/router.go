package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// SnapshotRoute serves the bundled server snapshot.
const SnapshotRoute = "/server-quotes.json"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// ServiceName names the otelgin spans.
	ServiceName string

	// Tracing enables the otelgin middleware.
	Tracing bool

	// AuthConfig contains authentication header configuration.
	AuthConfig *config.AuthConfig

	Session   config.SessionConfig
	RateLimit config.RateLimitConfig

	// SnapshotPath is served on SnapshotRoute when set.
	SnapshotPath string

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler

	// Timeout is the deadline of API requests. Zero disables it.
	Timeout time.Duration
}

// NewRouterConfig derives a RouterConfig from the service configuration.
func NewRouterConfig(cfg *config.Config, health *handlers.HealthHandler, quotes *handlers.QuoteHandler) RouterConfig {
	return RouterConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		Tracing:       cfg.Telemetry.Enabled,
		AuthConfig:    &cfg.Auth,
		Session:       cfg.Session,
		RateLimit:     cfg.RateLimit,
		SnapshotPath:  cfg.Static.ServerQuotesPath,
		HealthHandler: health,
		QuoteHandler:  quotes,
		Timeout:       DefaultRequestTimeout,
	}
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. OpenTelemetry - tracing (when enabled) and metrics
//  5. Logging - request logging (skips health endpoints)
//
// Route groups:
//   - /-/ (internal): Health endpoints, no session, no timeout
//   - /server-quotes.json: the bundled snapshot the default source syncs from
//   - /api/v1/ (public API): session, timeout, rate limit on sync, admin role
//     on destructive routes
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(middleware.Recovery(), middleware.RequestID(), middleware.CorrelationID())

	if cfg.Tracing {
		engine.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	}

	engine.Use(telemetry.Middleware(), middleware.Logging())

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.Register(engine)
	}

	if cfg.SnapshotPath != "" {
		engine.GET(SnapshotRoute, handlers.ServeSnapshot(cfg.SnapshotPath))
	}

	apiV1 := engine.Group("/api/v1")
	apiV1.Use(middleware.Session(middleware.SessionConfig{
		Header:     cfg.Session.Header,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
	}))

	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.QuoteHandler != nil {
		adminRole := ""
		if cfg.AuthConfig != nil {
			adminRole = cfg.AuthConfig.AdminRole
		}

		cfg.QuoteHandler.RegisterQuoteRoutes(apiV1,
			middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
			middleware.RequireRole(cfg.AuthConfig, adminRole),
		)
	}
}
