// Package config loads the service configuration with koanf and validates it.
package config

import (
	"strings"
	"time"
)

// Values of the built-in defaults that code and tests refer to.
const (
	DefaultServerPort   = 8080
	DefaultSyncInterval = 60 * time.Second
	DefaultSessionTTL   = 24 * time.Hour
	DefaultRateLimitRPS = 1.0
)

// Sync overlap policies. allow lets a due tick start while a sync runs;
// skip drops it.
const (
	OverlapAllow = "allow"
	OverlapSkip  = "skip"
)

// Config is the whole service configuration. Keys follow the koanf tags.
type Config struct {
	App       AppConfig         `koanf:"app"       validate:"required"`
	Server    ServerConfig      `koanf:"server"    validate:"required"`
	Log       LogConfig         `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig   `koanf:"telemetry"`
	Auth      AuthConfig        `koanf:"auth"`
	Client    ClientConfig      `koanf:"client"    validate:"required"`
	Services  ServicesConfig    `koanf:"services"  validate:"required"`
	Storage   StorageConfig     `koanf:"storage"   validate:"required"`
	Session   SessionConfig     `koanf:"session"   validate:"required"`
	Sync      SyncConfig        `koanf:"sync"      validate:"required"`
	Static    StaticConfig      `koanf:"static"`
	RateLimit RateLimitConfig   `koanf:"ratelimit" validate:"required"`
	Flags     map[string]string `koanf:"flags"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig sizes the HTTP server.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig selects the level and format of the process logger.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig enables the rolling JSON log file.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig points OTLP export at a collector.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
	Insecure     bool    `koanf:"insecure"`
}

// AuthConfig reads gateway-verified identity headers. Disabled by default.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	JWKSEndpoint  string `koanf:"jwks_endpoint"  validate:"required_if=Enabled true,omitempty,url"`
	Issuer        string `koanf:"issuer"         validate:"required_if=Enabled true"`
	Audience      string `koanf:"audience"       validate:"required_if=Enabled true"`
	ClaimsHeader  string `koanf:"claims_header"`
	RolesHeader   string `koanf:"roles_header"`
	ScopesHeader  string `koanf:"scopes_header"`
	SubjectHeader string `koanf:"subject_header"`
	AdminRole     string `koanf:"admin_role"`
}

// ClientConfig applies to both remote quote endpoints.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig drives exponential backoff. MaxAttempts 1 disables retries.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig opens after MaxFailures consecutive failures and
// probes again after Timeout.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig sizes the connection pool.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"         validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"      validate:"required,min=1s"`
}

// ServicesConfig names the remote quote source and push endpoint.
type ServicesConfig struct {
	QuoteSource ServiceEndpointConfig `koanf:"quote_source" validate:"required"`
	QuotePush   ServiceEndpointConfig `koanf:"quote_push"   validate:"required"`
}

// ServiceEndpointConfig is one remote endpoint.
type ServiceEndpointConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Path    string `koanf:"path"     validate:"required,startswith=/"`
	Name    string `koanf:"name"     validate:"required"`
}

// URL joins the base URL and path.
func (s ServiceEndpointConfig) URL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.Path
}

// StorageConfig selects the persistent key-value store.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite memory"`
	Path   string `koanf:"path"   validate:"required_if=Driver sqlite"`
}

// SessionConfig contains per-session state settings.
type SessionConfig struct {
	TTL        time.Duration `koanf:"ttl"         validate:"required,min=1m"`
	CookieName string        `koanf:"cookie_name" validate:"required"`
	Header     string        `koanf:"header"      validate:"required"`
}

// SyncConfig contains periodic sync settings.
type SyncConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Interval    time.Duration `koanf:"interval"     validate:"required,min=1s"`
	Overlap     string        `koanf:"overlap"      validate:"required,oneof=allow skip"`
	Policy      string        `koanf:"policy"       validate:"required,oneof=server-wins manual"`
	PushEnabled bool          `koanf:"push_enabled"`
	Timeout     time.Duration `koanf:"timeout"      validate:"required,min=100ms"`
}

// StaticConfig points at the bundled server snapshot.
type StaticConfig struct {
	ServerQuotesPath string `koanf:"server_quotes_path"`
}

// RateLimitConfig limits the sync-now endpoint.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"required,gt=0"`
	Burst             int     `koanf:"burst"               validate:"required,min=1"`
}
