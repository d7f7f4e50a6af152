package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// PageViewMiddleware records a page_view activity after every request that is not a
// programmatic call. AJAX requests (X-Requested-With: XMLHttpRequest) and CORS
// preflights are skipped. The response is never touched.
func PageViewMiddleware(logger audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !isPageView(c.Request) {
			return
		}

		var referer any
		if r := c.Request.Referer(); r != "" {
			referer = r
		}

		logger.Log(c.Request.Context(), models.ActionPageView, "Viewed "+c.Request.URL.Path, models.Metadata{
			"method":  c.Request.Method,
			"referer": referer,
			"is_pwa":  c.GetHeader(PWAHeader) != "",
		})
	}
}

func isPageView(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return false
	}
	return !strings.EqualFold(r.Header.Get(RequestedWithHeader), "XMLHttpRequest")
}
