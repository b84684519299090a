package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// SessionConfig names where the session ID travels.
type SessionConfig struct {
	Header     string
	CookieName string
	TTL        time.Duration
}

// Session resolves the caller's session from the configured header, then the
// cookie, and generates one when both are absent. The ID goes back in the
// header and in an HttpOnly cookie.
func Session(cfg SessionConfig) gin.HandlerFunc {
	return identifier{
		header: cfg.Header,
		ginKey: ContextKeySessionID,
		ctxKey: sessionIDKey,
		lookup: func(c *gin.Context) string {
			v, _ := c.Cookie(cfg.CookieName)
			return v
		},
		publish: func(c *gin.Context, id string) {
			c.Header(cfg.Header, id)
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, id, int(cfg.TTL.Seconds()), "/", "", false, true)
		},
		annotate: logging.WithSessionID,
	}.handler()
}
