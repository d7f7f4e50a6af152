package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
)

// Headers sent by the portal frontend.
const (
	// AppStateHeader carries the client application state (active, background, ...).
	AppStateHeader = "X-App-State"
	// PWAHeader is present when the request comes from the installed PWA.
	PWAHeader = "X-PWA"
	// RequestedWithHeader marks programmatic (AJAX) requests.
	RequestedWithHeader = "X-Requested-With"
)

// ActivityContextMiddleware starts the request's activity Recorder. Every activity logged
// while handling the request measures its response time from this point and carries the
// request's client IP, user agent, path and app state.
func ActivityContextMiddleware(enricher *audit.Enricher) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec := enricher.Begin(audit.RequestInfo{
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Route:     c.Request.URL.Path,
			AppState:  c.GetHeader(AppStateHeader),
			RequestID: RequestID(c),
		})
		c.Request = c.Request.WithContext(audit.WithRecorder(c.Request.Context(), rec))
		c.Next()
	}
}
