//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
)

// testClientConfig returns a minimal config for integration testing.
func testClientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "quote-source",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 2,
		},
	}
}

func newSource(t *testing.T, cfg *clients.Config) *acl.QuoteSource {
	t.Helper()

	client, err := clients.New(cfg)
	require.NoError(t, err)

	return acl.NewQuoteSource(acl.QuoteSourceConfig{Client: client, Path: "/server-quotes.json"})
}

// TestQuoteSource_RetriesTransientFailures verifies that a snapshot fetch
// survives two 503s when retries are enabled.
func TestQuoteSource_RetriesTransientFailures(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(defaultSnapshot))
	}))
	defer server.Close()

	quotes, err := newSource(t, testClientConfig(server.URL)).FetchQuotes(context.Background())
	require.NoError(t, err)

	assert.Len(t, quotes, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

// TestQuoteSource_NoRetryByDefault verifies a single attempt with the
// shipped retry setting.
func TestQuoteSource_NoRetryByDefault(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.Retry.MaxAttempts = 1

	_, err := newSource(t, cfg).FetchQuotes(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

// TestQuoteSource_CircuitBreaker verifies the breaker opens after repeated
// failures, short-circuits fetches and recovers once the source is healthy.
func TestQuoteSource_CircuitBreaker(t *testing.T) {
	var calls int32
	var failing atomic.Bool
	failing.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.Retry.MaxAttempts = 1

	client, err := clients.New(cfg)
	require.NoError(t, err)
	source := acl.NewQuoteSource(acl.QuoteSourceConfig{Client: client, Path: "/server-quotes.json"})

	for range 3 {
		_, err := source.FetchQuotes(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, clients.StateOpen, client.CircuitState())

	before := atomic.LoadInt32(&calls)
	_, err = source.FetchQuotes(context.Background())
	assert.ErrorContains(t, err, "circuit breaker open")
	assert.Equal(t, before, atomic.LoadInt32(&calls), "open circuit must not reach the server")

	failing.Store(false)
	time.Sleep(150 * time.Millisecond)

	for range 2 {
		_, err := source.FetchQuotes(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, clients.StateClosed, client.CircuitState())
}

// TestQuoteSource_Timeout verifies a slow source becomes a FetchError.
func TestQuoteSource_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.Retry.MaxAttempts = 1

	_, err := newSource(t, cfg).FetchQuotes(context.Background())

	assert.True(t, domain.IsFetch(err), "got %v", err)
}

// TestQuoteSource_HeaderPropagation verifies request and correlation ids
// travel from the inbound request context to the source.
func TestQuoteSource_HeaderPropagation(t *testing.T) {
	var gotRequestID, gotCorrelationID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(middleware.HeaderRequestID)
		gotCorrelationID = r.Header.Get(middleware.HeaderCorrelationID)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx := middleware.ContextWithRequestID(context.Background(), "req-42")
	ctx = middleware.ContextWithCorrelationID(ctx, "corr-7")

	_, err := newSource(t, testClientConfig(server.URL)).FetchQuotes(ctx)
	require.NoError(t, err)

	assert.Equal(t, "req-42", gotRequestID)
	assert.Equal(t, "corr-7", gotCorrelationID)
}

// TestQuoteSource_ContextCancellation verifies a cancelled sync stops the
// fetch promptly.
func TestQuoteSource_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := newSource(t, testClientConfig(server.URL)).FetchQuotes(ctx)

	require.Error(t, err)
	assert.True(t, domain.IsFetch(err) || errors.Is(err, context.Canceled), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
