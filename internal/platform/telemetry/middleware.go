package telemetry

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName = "github.com/jsamuelsen/quote-sync-service/telemetry"

	// HeaderTraceID carries the active trace id on every response.
	HeaderTraceID = "X-Trace-ID"

	unmatchedRoute = "unmatched"
)

type httpInstruments struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	duration, errDuration := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"))
	active, errActive := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP server requests in flight"),
		metric.WithUnit("{request}"))

	if err := errors.Join(errDuration, errActive); err != nil {
		return nil, err
	}

	return &httpInstruments{duration: duration, active: active}, nil
}

// route is the matched route template. Every unmatched path shares one
// label to keep cardinality bounded.
func route(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}

	return unmatchedRoute
}

// Middleware records request duration and in-flight requests on the global
// meter and echoes the trace id in X-Trace-ID. Spans come from
// TracingMiddleware, which must run first.
func Middleware() gin.HandlerFunc {
	inst, err := newHTTPInstruments(otel.Meter(meterName))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		if inst == nil {
			c.Next()
			return
		}

		start := time.Now()
		inFlight := metric.WithAttributes(semconv.HTTPRequestMethodKey.String(c.Request.Method))
		inst.active.Add(ctx, 1, inFlight)
		defer inst.active.Add(ctx, -1, inFlight)

		c.Next()

		inst.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			semconv.HTTPRequestMethodKey.String(c.Request.Method),
			semconv.HTTPRoute(route(c)),
			semconv.HTTPResponseStatusCode(c.Writer.Status()),
		))
	}
}

// TracingMiddleware starts a server span per request with otelgin.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}
