package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// RateLimit rejects requests above rps (with the given burst) with 429 and a
// Retry-After header. The limiter is shared by every route it is applied to.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	return RateLimitWith(rate.NewLimiter(rate.Limit(rps), burst))
}

// RateLimitWith uses an existing limiter.
func RateLimitWith(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := limiter.Reserve()
		if !r.OK() {
			abortWithCode(c, http.StatusTooManyRequests, dto.ErrorCodeRateLimited, "rate limit exceeded")
			return
		}

		if delay := r.Delay(); delay > 0 {
			r.Cancel()

			logging.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "rate limited",
				slog.String("path", c.FullPath()),
				slog.Duration("retry_after", delay))

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			abortWithCode(c, http.StatusTooManyRequests, dto.ErrorCodeRateLimited, "rate limit exceeded")

			return
		}

		c.Next()
	}
}
