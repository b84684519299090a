package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
)

func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}

// abortWithCode stops the chain with the standard error envelope, unless the
// handler already started writing.
func abortWithCode(c *gin.Context, status int, code, message string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message).WithTraceID(traceID(c)))
}
