package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
)

// serveScoped runs one request through guard with granted stored as the principal's
// scopes; a nil granted means no principal. It returns the response.
func serveScoped(guard gin.HandlerFunc, granted any) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/api/v1/activity", func(c *gin.Context) {
		if granted != nil {
			c.Set(UserIDKey, "42")
			c.Set(ScopesKey, granted)
		}
	}, guard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/activity", nil))
	return w
}

// ---------------------------------------------------------------------------
// RequireScope
// ---------------------------------------------------------------------------

func TestRequireScope(t *testing.T) {
	tests := []struct {
		name    string
		granted any
		want    int
	}{
		{"exact scope", []string{"activity:read"}, http.StatusOK},
		{"admin", []string{"admin"}, http.StatusOK},
		{"among others", []string{"catalog:write", "activity:read"}, http.StatusOK},
		{"other scope", []string{"activity:write"}, http.StatusForbidden},
		{"empty scopes", []string{}, http.StatusForbidden},
		{"no principal", nil, http.StatusUnauthorized},
		{"wrong type in context", "activity:read", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveScoped(RequireScope(auth.ScopeActivityRead), tt.granted)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireScope_ForbiddenNamesRequiredScope(t *testing.T) {
	w := serveScoped(RequireScope(auth.ScopeCatalogWrite), []string{"activity:write"})
	require.Equal(t, http.StatusForbidden, w.Code)

	var body struct {
		Error    string   `json:"error"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Missing required scope", body.Error)
	assert.Equal(t, []string{"catalog:write"}, body.Required)
}

// ---------------------------------------------------------------------------
// RequireAnyScope
// ---------------------------------------------------------------------------

func TestRequireAnyScope(t *testing.T) {
	guard := RequireAnyScope(auth.ScopeActivityRead, auth.ScopeActivityWrite)

	tests := []struct {
		name    string
		granted any
		want    int
	}{
		{"first", []string{"activity:read"}, http.StatusOK},
		{"second", []string{"activity:write"}, http.StatusOK},
		{"admin", []string{"admin"}, http.StatusOK},
		{"neither", []string{"catalog:write"}, http.StatusForbidden},
		{"no principal", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serveScoped(guard, tt.granted).Code)
		})
	}
}

func TestRequireAnyScope_NoScopesListed(t *testing.T) {
	w := serveScoped(RequireAnyScope(), []string{"admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
