package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
)

// RequireScope lets the request through only when the principal holds scope (or admin).
func RequireScope(scope auth.Scope) gin.HandlerFunc {
	return requireScopes([]auth.Scope{scope}, func(granted []string) bool {
		return auth.HasScope(granted, scope)
	})
}

// RequireAnyScope lets the request through when the principal holds one of scopes.
func RequireAnyScope(scopes ...auth.Scope) gin.HandlerFunc {
	return requireScopes(scopes, func(granted []string) bool {
		return auth.HasAnyScope(granted, scopes)
	})
}

// requireScopes answers 401 when no principal was resolved and 403 when the principal's
// scopes do not satisfy allowed.
func requireScopes(required []auth.Scope, allowed func([]string) bool) gin.HandlerFunc {
	names := make([]string, len(required))
	for i, s := range required {
		names[i] = string(s)
	}

	return func(c *gin.Context) {
		granted, ok := c.Get(ScopesKey)
		scopes, isSlice := granted.([]string)
		if !ok || !isSlice {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if !allowed(scopes) {
			slog.Info("scope check denied request",
				"user_id", c.GetString(UserIDKey), "path", c.FullPath(), "required", names)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "Missing required scope",
				"required": names,
			})
			return
		}

		c.Next()
	}
}
