package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
)

const (
	// ContextKeyClaims is the gin context key for extracted claims.
	ContextKeyClaims = "claims"

	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
)

// Claims are the caller attributes forwarded by the gateway, which has
// already validated the token.
type Claims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the caller holds role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ExtractClaims reads the subject and comma-separated roles headers.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader := defaultSubjectHeader, defaultRolesHeader
	if cfg != nil {
		if cfg.SubjectHeader != "" {
			subjectHeader = cfg.SubjectHeader
		}
		if cfg.RolesHeader != "" {
			rolesHeader = cfg.RolesHeader
		}
	}

	claims := &Claims{Subject: c.GetHeader(subjectHeader)}
	for _, r := range strings.Split(c.GetHeader(rolesHeader), ",") {
		if r = strings.TrimSpace(r); r != "" {
			claims.Roles = append(claims.Roles, r)
		}
	}

	return claims
}

// GetClaims returns the claims stored by RequireRole, or nil.
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get(ContextKeyClaims); ok {
		if cl, ok := v.(*Claims); ok {
			return cl
		}
	}

	return nil
}

// RequireRole guards destructive routes such as reset and conflict
// resolution. It passes everything through when auth is disabled.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		claims := ExtractClaims(c, cfg)
		c.Set(ContextKeyClaims, claims)

		switch {
		case claims.Subject == "":
			abortWithCode(c, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "authentication required")
		case role != "" && !claims.HasRole(role):
			abortWithCode(c, http.StatusForbidden, dto.ErrorCodeForbidden, "insufficient permissions: role "+role+" required")
		default:
			c.Next()
		}
	}
}
