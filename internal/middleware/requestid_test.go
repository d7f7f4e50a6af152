package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// serveRequestID sends one GET through RequestIDMiddleware and returns the response
// header value and the id the handler saw.
func serveRequestID(t *testing.T, inbound string) (header, seen string) {
	t.Helper()
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		seen = RequestID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(RequestIDHeader, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header().Get(RequestIDHeader), seen
}

// ---------------------------------------------------------------------------
// RequestIDMiddleware
// ---------------------------------------------------------------------------

func TestRequestIDMiddleware_ReusesValidInboundID(t *testing.T) {
	for _, id := range []string{
		"upstream-provided-request-id-001",
		"lb:7f3a.2",
		"4e0bd6a2-3c55-4a8f-9b3e-1d2f50c4a001",
	} {
		header, seen := serveRequestID(t, id)
		if header != id || seen != id {
			t.Errorf("inbound %q: header %q, handler saw %q", id, header, seen)
		}
	}
}

func TestRequestIDMiddleware_ReplacesUnsafeInboundID(t *testing.T) {
	tests := map[string]string{
		"absent":      "",
		"newline":     "abc\nforged log line",
		"spaces":      "drop table please",
		"quote":       `id"x`,
		"too long":    strings.Repeat("a", maxRequestIDLength+1),
		"non ascii":   "pedidoñ",
		"html":        "<script>",
		"path":        "../../etc",
		"semicolon":   "a;b",
		"only spaces": "   ",
	}
	for name, inbound := range tests {
		t.Run(name, func(t *testing.T) {
			header, seen := serveRequestID(t, inbound)
			if header == inbound {
				t.Fatalf("unsafe id %q was echoed", inbound)
			}
			if _, err := uuid.Parse(header); err != nil {
				t.Errorf("replacement %q is not a UUID: %v", header, err)
			}
			if seen != header {
				t.Errorf("handler saw %q, response carries %q", seen, header)
			}
		})
	}
}

func TestRequestIDMiddleware_AcceptsMaxLength(t *testing.T) {
	id := strings.Repeat("b", maxRequestIDLength)
	if header, _ := serveRequestID(t, id); header != id {
		t.Errorf("id of exactly %d chars was replaced", maxRequestIDLength)
	}
}

func TestRequestIDMiddleware_UniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		header, _ := serveRequestID(t, "")
		if seen[header] {
			t.Fatalf("duplicate request id %q", header)
		}
		seen[header] = true
	}
}

func TestRequestID_EmptyWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := RequestID(c); got != "" {
		t.Errorf("RequestID() = %q, want empty", got)
	}
}
