package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig selects the protective response headers. Zero values leave the
// corresponding header out.
type SecurityHeadersConfig struct {
	HSTSMaxAge            int    // Strict-Transport-Security max-age in seconds
	FrameOptions          string // X-Frame-Options
	ContentSecurityPolicy string
	ReferrerPolicy        string
	// NoStore marks every response uncacheable. Activity listings and exports carry
	// personal data and must not land in shared caches.
	NoStore bool
}

// APISecurityHeadersConfig is the set used for the JSON and CSV API.
func APISecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		HSTSMaxAge:            31536000,
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		NoStore:               true,
	}
}

// headers flattens the config into the fixed header list written on every response.
func (cfg SecurityHeadersConfig) headers() [][2]string {
	h := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
	}
	if cfg.HSTSMaxAge > 0 {
		h = append(h, [2]string{"Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)})
	}
	if cfg.FrameOptions != "" {
		h = append(h, [2]string{"X-Frame-Options", cfg.FrameOptions})
	}
	if cfg.ContentSecurityPolicy != "" {
		h = append(h, [2]string{"Content-Security-Policy", cfg.ContentSecurityPolicy})
	}
	if cfg.ReferrerPolicy != "" {
		h = append(h, [2]string{"Referrer-Policy", cfg.ReferrerPolicy})
	}
	if cfg.NoStore {
		h = append(h, [2]string{"Cache-Control", "no-store"})
	}
	return h
}

// SecurityHeadersMiddleware writes the configured headers before the handler runs, so a
// handler may still override any of them.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) gin.HandlerFunc {
	headers := cfg.headers()
	return func(c *gin.Context) {
		for _, kv := range headers {
			c.Header(kv[0], kv[1])
		}
		c.Next()
	}
}
