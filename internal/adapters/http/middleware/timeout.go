package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
)

// Timeout puts a deadline on the request context. Route templates listed in
// skipPaths get none. When the deadline fires before the handler wrote a
// response, the request ends with 504 TIMEOUT.
func Timeout(timeout time.Duration, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if timeout <= 0 || skip[c.FullPath()] {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			abortWithCode(c, http.StatusGatewayTimeout, dto.ErrorCodeTimeout, "request timed out")
		}
	}
}
