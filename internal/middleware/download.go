package middleware

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

var dispositionFilename = regexp.MustCompile(`filename="([^"]+)"`)

// DownloadMiddleware records a file_download activity after any response sent as an
// attachment. Responses without "attachment" in Content-Disposition are ignored.
func DownloadMiddleware(logger audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		header := c.Writer.Header()
		disposition := header.Get("Content-Disposition")
		if !strings.Contains(strings.ToLower(disposition), "attachment") {
			return
		}

		var filename any
		description := "Downloaded file"
		if m := dispositionFilename.FindStringSubmatch(disposition); m != nil {
			filename = m[1]
			description = "Downloaded " + m[1]
		}

		var contentType any
		if ct := header.Get("Content-Type"); ct != "" {
			contentType = ct
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		logger.Log(c.Request.Context(), models.ActionFileDownload, description, models.Metadata{
			"filename":       filename,
			"content_type":   contentType,
			"content_length": contentLength(c),
			"route":          route,
		})
	}
}

// contentLength prefers the declared Content-Length and falls back to the bytes the
// handler actually wrote, which is what a streamed response has.
func contentLength(c *gin.Context) any {
	if v := c.Writer.Header().Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if n := c.Writer.Size(); n >= 0 {
		return int64(n)
	}
	return nil
}
