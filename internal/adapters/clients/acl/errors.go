package acl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

// maxErrorBody bounds how much of a failed response is inspected.
const maxErrorBody = 64 << 10

// RemoteError is the error body a remote endpoint sent with a non-2xx status.
type RemoteError struct {
	Code    string
	Message string
}

// ParseRemoteError reads an error body. It understands the nested
// {"error":{"code","message"}} shape, the flat {"code","message"} shape and
// {"error":"text"}. Returns nil when the body says nothing useful.
func ParseRemoteError(body io.Reader) *RemoteError {
	if body == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || !gjson.ValidBytes(data) {
		return nil
	}

	doc := gjson.ParseBytes(data)
	re := RemoteError{
		Code:    firstString(doc, "error.code", "code"),
		Message: firstString(doc, "error.message", "message", "error", "detail"),
	}
	if re.Code == "" && re.Message == "" {
		return nil
	}

	return &re
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := doc.Get(p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}

	return ""
}

var statusReasons = map[int]string{
	http.StatusNotFound:           "resource not found",
	http.StatusTooManyRequests:    "rate limit exceeded",
	http.StatusServiceUnavailable: "service temporarily unavailable",
}

// MapHTTPError turns a failed exchange with a remote endpoint into a
// domain.FetchError. resp may be nil when clientErr is set; a 2xx response
// maps to nil. The reason comes from the error body when it has one.
func MapHTTPError(resp *http.Response, clientErr error, source, operation string) error {
	switch {
	case clientErr != nil:
		return domain.NewFetchError(source, clientReason(clientErr, operation))
	case resp == nil:
		return domain.NewFetchError(source, "no response received")
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	}

	reason, ok := statusReasons[resp.StatusCode]
	if !ok {
		reason = fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)
	}
	if re := ParseRemoteError(resp.Body); re != nil && re.Message != "" {
		reason = re.Message
	}

	return domain.NewFetchErrorWithStatus(source, reason, resp.StatusCode)
}

func clientReason(err error, operation string) string {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return "circuit breaker open during " + operation
	case errors.Is(err, context.DeadlineExceeded):
		return operation + " timed out"
	case errors.Is(err, context.Canceled):
		return operation + " cancelled"
	default:
		return fmt.Sprintf("%s failed: %v", operation, err)
	}
}
