// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// Tracing headers. The correlation ID spans every call of one business
// transaction, including the outbound sync fetch and push.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Gin context keys.
const (
	ContextKeyRequestID     = "request_id"
	ContextKeyCorrelationID = "correlation_id"
	ContextKeySessionID     = "session_id"
)

type idKey int

const (
	requestIDKey idKey = iota
	correlationIDKey
	sessionIDKey
)

// identifier is an extract-or-generate ID carried by every request.
type identifier struct {
	header string
	ginKey string
	ctxKey idKey

	// lookup runs when the header is absent.
	lookup func(c *gin.Context) string
	// publish replaces echoing the header on the response.
	publish func(c *gin.Context, id string)
	// annotate adds the id to the context logger.
	annotate func(ctx context.Context, id string) context.Context
}

func (i identifier) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(i.header)
		if id == "" && i.lookup != nil {
			id = i.lookup(c)
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(i.ginKey, id)
		if i.publish != nil {
			i.publish(c, id)
		} else {
			c.Header(i.header, id)
		}

		ctx := context.WithValue(c.Request.Context(), i.ctxKey, id)
		c.Request = c.Request.WithContext(i.annotate(ctx, id))

		c.Next()
	}
}

// RequestID reads X-Request-ID or generates a UUID. The id is echoed on the
// response and attached to the request context and logger.
func RequestID() gin.HandlerFunc {
	return identifier{
		header:   HeaderRequestID,
		ginKey:   ContextKeyRequestID,
		ctxKey:   requestIDKey,
		annotate: logging.WithRequestID,
	}.handler()
}

// CorrelationID propagates X-Correlation-ID, generating one at the origin.
func CorrelationID() gin.HandlerFunc {
	return identifier{
		header:   HeaderCorrelationID,
		ginKey:   ContextKeyCorrelationID,
		ctxKey:   correlationIDKey,
		annotate: logging.WithCorrelationID,
	}.handler()
}

// GetRequestID returns the request ID, or "" if the middleware did not run.
func GetRequestID(c *gin.Context) string { return c.GetString(ContextKeyRequestID) }

// GetCorrelationID returns the correlation ID, or "" if the middleware did not run.
func GetCorrelationID(c *gin.Context) string { return c.GetString(ContextKeyCorrelationID) }

// GetSessionID returns the session ID, or "" if the middleware did not run.
func GetSessionID(c *gin.Context) string { return c.GetString(ContextKeySessionID) }

func idFrom(ctx context.Context, key idKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}

// RequestIDFromContext returns the request ID, or "" when unset.
// Client adapters forward it to the quote source and push endpoint.
func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestIDKey) }

// CorrelationIDFromContext returns the correlation ID, or "" when unset.
func CorrelationIDFromContext(ctx context.Context) string { return idFrom(ctx, correlationIDKey) }

// SessionIDFromContext returns the session ID, or "" when unset.
func SessionIDFromContext(ctx context.Context) string { return idFrom(ctx, sessionIDKey) }

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithCorrelationID stores a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithSessionID stores a session ID in ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}
