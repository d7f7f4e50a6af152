package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

func newPageViewRouter(logger *recordingLogger) *gin.Engine {
	r := gin.New()
	r.Use(PageViewMiddleware(logger))
	r.Any("/dashboard", func(c *gin.Context) {
		c.String(http.StatusOK, "dashboard")
	})
	return r
}

// ---------------------------------------------------------------------------
// PageViewMiddleware
// ---------------------------------------------------------------------------

func TestPageViewMiddleware_RecordsNavigation(t *testing.T) {
	logger := &recordingLogger{}
	r := newPageViewRouter(logger)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Referer", "https://portal.example.com/login")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dashboard", w.Body.String())

	calls := logger.all()
	require.Len(t, calls, 1)
	assert.Equal(t, models.ActionPageView, calls[0].action)
	assert.Equal(t, "Viewed /dashboard", calls[0].description)
	assert.Equal(t, "GET", calls[0].data["method"])
	assert.Equal(t, "https://portal.example.com/login", calls[0].data["referer"])
	assert.Equal(t, false, calls[0].data["is_pwa"])
}

func TestPageViewMiddleware_PWAAndMissingReferer(t *testing.T) {
	logger := &recordingLogger{}
	r := newPageViewRouter(logger)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(PWAHeader, "1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	calls := logger.all()
	require.Len(t, calls, 1)
	assert.Equal(t, true, calls[0].data["is_pwa"])
	v, ok := calls[0].data["referer"]
	assert.True(t, ok, "referer key should be present")
	assert.Nil(t, v)
}

func TestPageViewMiddleware_SkipsProgrammaticRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		header string
	}{
		{"ajax", http.MethodGet, "XMLHttpRequest"},
		{"ajax lower case", http.MethodPost, "xmlhttprequest"},
		{"preflight", http.MethodOptions, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			r := newPageViewRouter(logger)

			req := httptest.NewRequest(tt.method, "/dashboard", nil)
			if tt.header != "" {
				req.Header.Set(RequestedWithHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, logger.all())
		})
	}
}

func TestPageViewMiddleware_RecordsAfterHandlerError(t *testing.T) {
	logger := &recordingLogger{}
	r := gin.New()
	r.Use(PageViewMiddleware(logger))
	r.GET("/broken", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, logger.all(), 1)
}
