package acl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
)

// testClient returns a client against srv with retries disabled.
func testClient(t *testing.T, baseURL string) *clients.Client {
	t.Helper()

	c, err := clients.New(&clients.Config{
		ServiceName: "test-source",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   1,
			Timeout:       time.Hour,
			HalfOpenLimit: 1,
		},
	})
	require.NoError(t, err)

	return c
}

func body(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestMapHTTPError_Status(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{name: "not found", status: http.StatusNotFound, wantReason: "resource not found"},
		{name: "rate limited", status: http.StatusTooManyRequests, wantReason: "rate limit exceeded"},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantReason: "service temporarily unavailable"},
		{name: "other status", status: http.StatusTeapot, wantReason: "fetch quotes failed with status 418"},
		{name: "nested error body", status: http.StatusBadGateway, body: `{"error":{"code":"UPSTREAM","message":"origin down"}}`, wantReason: "origin down"},
		{name: "flat error body", status: http.StatusInternalServerError, body: `{"code":"X","message":"boom"}`, wantReason: "boom"},
		{name: "unparsable body", status: http.StatusInternalServerError, body: `<html>`, wantReason: "fetch quotes failed with status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(&http.Response{StatusCode: tt.status, Body: body(tt.body)}, nil, "source", "fetch quotes")

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.status, fetchErr.Status)
			assert.Equal(t, tt.wantReason, fetchErr.Reason)
			assert.Equal(t, "source", fetchErr.Source)
		})
	}
}

func TestMapHTTPError_Success(t *testing.T) {
	assert.NoError(t, MapHTTPError(&http.Response{StatusCode: http.StatusCreated, Body: body("")}, nil, "s", "op"))
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "circuit open", err: clients.ErrCircuitOpen, want: "circuit breaker open during fetch quotes"},
		{name: "deadline", err: context.DeadlineExceeded, want: "fetch quotes timed out"},
		{name: "cancelled", err: context.Canceled, want: "fetch quotes cancelled"},
		{name: "transport", err: errors.New("connection refused"), want: "fetch quotes failed: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(nil, tt.err, "source", "fetch quotes")

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.want, fetchErr.Reason)
			assert.Zero(t, fetchErr.Status)
		})
	}

	assert.True(t, domain.IsFetch(MapHTTPError(nil, nil, "s", "op")))
}

func TestParseRemoteError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *RemoteError
	}{
		{name: "empty object", body: `{}`},
		{name: "not json", body: `not json`},
		{name: "nested", body: `{"error":{"code":"C","message":"m"}}`, want: &RemoteError{Code: "C", Message: "m"}},
		{name: "flat", body: `{"code":"X","message":"boom"}`, want: &RemoteError{Code: "X", Message: "boom"}},
		{name: "error string", body: `{"error":"quota exhausted"}`, want: &RemoteError{Message: "quota exhausted"}},
		{name: "detail only", body: `{"detail":"try later"}`, want: &RemoteError{Message: "try later"}},
		{name: "non-string message", body: `{"message":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRemoteError(strings.NewReader(tt.body)))
		})
	}

	assert.Nil(t, ParseRemoteError(nil))
}

func TestDecodeArray(t *testing.T) {
	items, err := DecodeArray([]byte(` [{"text":"a"}, 1, null] `), "s")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.JSONEq(t, `{"text":"a"}`, string(items[0]))
	assert.Equal(t, "null", string(items[2]))

	for _, in := range []string{`{"text":"a"}`, `null`, `"quotes"`, ``, `[1,`} {
		_, err := DecodeArray([]byte(in), "s")
		assert.True(t, domain.IsFetch(err), "input %q", in)
	}

	items, err = DecodeArray([]byte(`[]`), "s")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEndpoint(t *testing.T) {
	var posted string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Method == http.MethodPost {
				b, _ := io.ReadAll(r.Body)
				posted = string(b)
				w.WriteHeader(http.StatusCreated)
			}
			_, _ = w.Write([]byte(`ok`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	e := NewEndpoint(client, "/ok")
	assert.Equal(t, "test-source", e.ServiceName())
	assert.Same(t, client, e.Client())
	assert.Equal(t, "/ok", e.Path())

	data, err := e.Fetch(context.Background(), "get")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))

	require.NoError(t, e.Send(context.Background(), map[string]int{"n": 1}, "post"))
	assert.JSONEq(t, `{"n":1}`, posted)

	_, err = NewEndpoint(client, "/missing").Fetch(context.Background(), "get")
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Equal(t, "resource not found", fetchErr.Reason)

	assert.Panics(t, func() { NewEndpoint(nil, "/ok") })
}

func TestMapEach(t *testing.T) {
	double := func(n int) (int, error) {
		if n < 0 {
			return 0, domain.NewValidationError("n", "must not be negative")
		}
		return n * 2, nil
	}

	out, err := mapEach([]int{1, 2}, double)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, out)

	_, err = mapEach([]int{1, -1}, double)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translating item 1")
	assert.True(t, domain.IsValidation(err))
}
