package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/session"
)

// Context keys set by SessionMiddleware.
const (
	SessionIDKey    = "session_id"
	SessionStartKey = "session_start"
)

// SessionMiddleware assigns each browser a session cookie and records when the session
// began, which the activity statistics use for session duration. A nil store disables
// it. Redis failures are logged and the request continues without a session start.
func SessionMiddleware(store *session.Store, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		id, err := c.Cookie(cfg.CookieName)
		if err != nil || id == "" {
			id = uuid.New().String()
		}

		// refreshed on every request so the cookie slides with the Redis TTL
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(cfg.TTL / time.Second),
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(SessionIDKey, id)

		started, err := store.Start(c.Request.Context(), id, time.Now())
		if err != nil {
			slog.Warn("failed to record session start", "error", err)
		} else {
			c.Set(SessionStartKey, started)
		}

		c.Next()
	}
}
