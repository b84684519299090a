package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

// maxBody bounds a snapshot read from the quote source.
const maxBody = 8 << 20

// Endpoint is one remote quote endpoint reached through the instrumented
// client. Every failure it returns is a domain.FetchError.
type Endpoint struct {
	client *clients.Client
	path   string
}

// NewEndpoint binds path on client. Panics if client is nil.
func NewEndpoint(client *clients.Client, path string) Endpoint {
	if client == nil {
		panic("acl: client is required")
	}

	return Endpoint{client: client, path: path}
}

// Client returns the underlying HTTP client.
func (e Endpoint) Client() *clients.Client { return e.client }

// ServiceName names the remote service in errors and logs.
func (e Endpoint) ServiceName() string { return e.client.ServiceName() }

// Path is the request path of the endpoint.
func (e Endpoint) Path() string { return e.path }

// Fetch GETs the endpoint and returns the whole body.
func (e Endpoint) Fetch(ctx context.Context, operation string) ([]byte, error) {
	resp, err := e.client.Get(ctx, e.path)
	if err := e.check(resp, err, operation); err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, domain.NewFetchError(e.ServiceName(), fmt.Sprintf("%s: reading body: %v", operation, err))
	}

	return data, nil
}

// Send POSTs payload as JSON. The response body is drained and ignored.
func (e Endpoint) Send(ctx context.Context, payload any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", operation, err)
	}

	resp, err := e.client.Post(ctx, e.path, body)
	if err := e.check(resp, err, operation); err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (e Endpoint) check(resp *http.Response, err error, operation string) error {
	if err != nil {
		return MapHTTPError(nil, err, e.ServiceName(), operation)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return MapHTTPError(resp, nil, e.ServiceName(), operation)
	}

	return nil
}

// DecodeArray splits a document that must be a JSON array into its raw
// elements. Anything else, including null and truncated input, is a
// domain.FetchError.
func DecodeArray(data []byte, source string) ([]json.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, domain.NewFetchError(source, "invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, domain.NewFetchError(source, "response is not a JSON array")
	}

	var items []json.RawMessage
	doc.ForEach(func(_, value gjson.Result) bool {
		items = append(items, json.RawMessage(value.Raw))
		return true
	})

	return items, nil
}

// mapEach converts every item, stopping at the first failure.
func mapEach[F, T any](items []F, convert func(F) (T, error)) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := convert(item)
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		out = append(out, v)
	}

	return out, nil
}
