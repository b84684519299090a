package acl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *QuoteSource {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewQuoteSource(QuoteSourceConfig{Client: testClient(t, srv.URL), Path: "/server-quotes.json"})
}

func serve(status int, payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/server-quotes.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}
}

func TestNewQuoteSource_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewQuoteSource(QuoteSourceConfig{}) })
}

func TestQuoteSource_FetchQuotes(t *testing.T) {
	src := newTestSource(t, serve(http.StatusOK,
		`[{"text":"Stay hungry","category":"Motivation","id":7},{"text":42},"junk",{"category":"x"}]`))

	raw, err := src.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, raw, 3, "non-object items are dropped")

	q, ok := raw[0].ToQuote()
	require.True(t, ok)
	assert.Equal(t, domain.Quote{Text: "Stay hungry", Category: "motivation", ID: "7"}, q)

	q, ok = raw[1].ToQuote()
	require.True(t, ok)
	assert.Equal(t, "42", q.Text)
	assert.Equal(t, domain.CategoryUncategorized, q.Category)

	_, ok = raw[2].ToQuote()
	assert.False(t, ok)
}

func TestQuoteSource_FetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		payload    string
		wantStatus int
	}{
		{name: "server error", status: http.StatusInternalServerError, payload: `{}`, wantStatus: http.StatusInternalServerError},
		{name: "not found", status: http.StatusNotFound, wantStatus: http.StatusNotFound},
		{name: "object body", status: http.StatusOK, payload: `{"quotes":[]}`},
		{name: "invalid json", status: http.StatusOK, payload: `[{"text":`},
		{name: "empty body", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(t, serve(tt.status, tt.payload))

			raw, err := src.FetchQuotes(context.Background())
			assert.Nil(t, raw)

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.wantStatus, fetchErr.Status)
		})
	}
}

func TestQuoteSource_CircuitOpenIsFetchError(t *testing.T) {
	src := newTestSource(t, serve(http.StatusBadGateway, ""))

	_, err := src.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.Equal(t, clients.StateOpen, src.Client().CircuitState())

	_, err = src.FetchQuotes(context.Background())
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "circuit breaker open")
}

func TestQuoteSource_Health(t *testing.T) {
	src := newTestSource(t, serve(http.StatusOK, `[]`))
	assert.Equal(t, "test-source", src.Name())
	require.NoError(t, src.Check(context.Background()))

	down := newTestSource(t, serve(http.StatusServiceUnavailable, ""))
	assert.True(t, domain.IsFetch(down.Check(context.Background())))
}
