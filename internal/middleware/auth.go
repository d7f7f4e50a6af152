// Package middleware provides the Gin HTTP middleware of the portal API: principal
// resolution, scope checks, rate limiting, security headers, metrics and the activity
// interceptors.
//
// Middleware ordering matters and is enforced in router.go:
//
//	RequestID → Metrics → Logger → CORS → Security → ActivityContext → Session →
//	PageView/Download → Auth (OptionalAuth on /api/v1/public) → RequireScope →
//	RateLimit → Handler
//
// ActivityContext runs before Auth so the recorded response time covers authentication.
// The interceptors wrap Auth and only act after the chain returns, so a request that
// Auth rejects is still recorded, without a user.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
)

// Context keys set by the auth middleware.
const (
	UserIDKey     = "user_id"
	UserEmailKey  = "user_email"
	ScopesKey     = "scopes"
	AuthMethodKey = "auth_method"
)

// bearerToken extracts the token of an "Authorization: Bearer" header. It returns a
// client-facing error message when the header is present but malformed.
func bearerToken(c *gin.Context) (token string, problem string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Authorization header must start with 'Bearer '"
	}
	token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "Authorization token is empty"
	}
	return token, ""
}

// setPrincipal stores the principal in the gin context and in the request context, where
// the activity enricher looks for it.
func setPrincipal(c *gin.Context, claims *auth.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(ScopesKey, claims.Granted())
	c.Set(AuthMethodKey, "jwt")
	c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), claims.UserID))
}

// AuthMiddleware requires a valid portal JWT
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		setPrincipal(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the principal when a valid token is present and lets
// anonymous requests through; their activity is recorded without a user.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, problem := bearerToken(c); problem == "" {
			if claims, err := auth.ValidateJWT(token); err == nil {
				setPrincipal(c, claims)
			}
		}
		c.Next()
	}
}
