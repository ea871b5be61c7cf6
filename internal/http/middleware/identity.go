// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the identity middleware. The portal does not run its
// own credential verification; the hosting backend is the authority. The
// caller presents an identity via the X-User-ID header (injected by the
// fronting auth proxy), and the middleware threads it through both the Gin
// context (for logging and rate limiting) and the request context (so the
// backend client forwards it upstream).
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caffeinepub/doom-hosting/internal/backend"
)

const (
	// userIDKey is the Gin context key under which the caller identity is stored.
	userIDKey = "userID"
	// userIDHeader carries the caller identity from the auth proxy.
	userIDHeader = "X-User-ID"
)

// Identity extracts the caller identity from X-User-ID and attaches it to
// the Gin context and the request context. Requests without an identity
// pass through unmodified; identity-gated reads downstream stay inert for
// them, mirroring a dashboard rendered before login completes.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(userIDHeader)); uid != "" {
			c.Set(userIDKey, uid)
			c.Request = c.Request.WithContext(backend.WithUser(c.Request.Context(), uid))
		}
		c.Next()
	}
}

// RequireIdentity rejects requests that carry no identity with a 401
// envelope. Install it on route groups whose operations have side effects;
// read routes rely on gating instead so anonymous dashboards degrade
// gracefully rather than erroring.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserFrom(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "identity required",
			})
			return
		}
		c.Next()
	}
}

// UserFrom returns the identity attached by Identity(), or "".
func UserFrom(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
