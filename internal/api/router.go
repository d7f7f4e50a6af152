// Package api wires together all HTTP routes for the portal activity service.
//
// Route grouping:
//   - /health, /ready and /version are public and are not recorded in the activity trail.
//   - Everything under /api/v1/ requires a bearer token, except /api/v1/public/ where a
//     token is optional and anonymous activity is recorded without a user. The page-view
//     and download interceptors sit on both groups, outside the auth middleware, so they
//     still run after the handler chain has finished and see the principal auth attached.
//   - audit.enabled can be flipped by a config reload; the interceptors and the observer
//     follow it without a restart.
//   - Catalog mutations (circuits, tacks, sellers, shares) publish lifecycle events that
//     the activity observer turns into model_* records.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Rodrigo270695/portalAD-sub001/internal/api/activity"
	"github.com/Rodrigo270695/portalAD-sub001/internal/api/catalog"
	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/export"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
	"github.com/Rodrigo270695/portalAD-sub001/internal/middleware"
	"github.com/Rodrigo270695/portalAD-sub001/internal/session"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage"
)

// Version is reported by /version and the auditctl binary.
const Version = "0.1.0"

// observedEntities are the catalog entity types whose mutations are recorded.
var observedEntities = []string{"Circuit", "Tack", "Seller", "Share"}

// readinessProbeKey is a known-absent key used to exercise the storage backend.
const readinessProbeKey = ".readiness-probe"

// BackgroundServices holds references to background resources that must be stopped
// during graceful shutdown. The caller (cmd/server) is responsible for calling
// Shutdown() after the HTTP server has drained.
type BackgroundServices struct {
	writer      audit.Writer
	rateLimiter *middleware.RateLimiter
	recording   *auditSwitch
}

// SetAuditEnabled turns the activity interceptors and the mutation observer on or off.
// Explicit submissions to /api/v1/activity are recorded either way.
func (bg *BackgroundServices) SetAuditEnabled(enabled bool) {
	bg.recording.set(enabled)
}

// auditSwitch holds the runtime state of audit.enabled.
type auditSwitch struct {
	enabled  atomic.Bool
	bus      *lifecycle.Bus
	observer *audit.Observer
}

func (s *auditSwitch) set(enabled bool) {
	s.enabled.Store(enabled)
	if enabled {
		s.observer.Attach(s.bus, observedEntities...)
	} else {
		s.observer.Detach(s.bus, observedEntities...)
	}

	observed := 0
	for _, t := range observedEntities {
		if s.bus.Subscribed(t) {
			observed++
		}
	}
	slog.Info("activity recording updated", "enabled", enabled, "observed_entity_types", observed)
}

// gate runs mw only while recording is enabled.
func (s *auditSwitch) gate(mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enabled.Load() {
			c.Next()
			return
		}
		mw(c)
	}
}

// Shutdown flushes queued activity records and stops background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.rateLimiter != nil {
		bg.rateLimiter.Stop()
	}
	if bg.writer != nil {
		if err := bg.writer.Close(); err != nil {
			slog.Error("failed to close activity writer", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. redis may be nil, in which case
// session tracking is disabled and rate limiting falls back to an in-process limiter.
func NewRouter(cfg *config.Config, db *sqlx.DB, redis *goredis.Client) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()
	loc := cfg.Audit.Location()

	var store storage.Storage
	if cfg.Storage.DefaultBackend != "" {
		s, err := storage.NewStorage(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize storage backend: %w", err)
		}
		store = s
		slog.Info("initialized export storage backend", "backend", cfg.Storage.DefaultBackend)
	}

	activityRepo := repositories.NewActivityLogRepository(db)

	writer, err := NewActivityWriter(&cfg.Audit, activityRepo)
	if err != nil {
		return nil, nil, err
	}

	enricher := audit.NewEnricher(
		writer,
		audit.NewHeuristic(activityRepo, cfg.Audit.Anomaly, loc),
		loc,
		audit.WithDefaultAppState(cfg.Audit.DefaultAppState),
	)

	bus := lifecycle.NewBus()
	recording := &auditSwitch{bus: bus, observer: audit.NewObserver(enricher)}
	recording.set(cfg.Audit.Enabled)

	var archiver *export.Archiver
	if store != nil {
		archiver = export.NewArchiver(activityRepo, store, cfg.Audit.Export.ArchivePrefix, cfg.Audit.Export.BatchSize)
	}

	var sessions *session.Store
	if redis != nil {
		sessions = session.NewStore(redis, cfg.Session.TTL)
	}

	bg := &BackgroundServices{writer: writer, recording: recording}

	var limiter middleware.Limiter
	if cfg.Security.RateLimiting.Enabled {
		rlCfg := middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
			CleanupInterval:   middleware.DefaultRateLimitConfig().CleanupInterval,
		}
		if redis != nil {
			limiter = middleware.NewRedisRateLimiter(redis, rlCfg)
		} else {
			rl := middleware.NewRateLimiter(rlCfg)
			bg.rateLimiter = rl
			limiter = rl
		}
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware("/health", "/ready"))
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.ActivityContextMiddleware(enricher))
	router.Use(middleware.SessionMiddleware(sessions, cfg.Session))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, store))
	router.GET("/version", versionHandler())

	activityHandlers := activity.NewHandlers(enricher, activityRepo, audit.NewReports(activityRepo),
		archiver, loc, cfg.Audit.Export.BatchSize)

	var limited []gin.HandlerFunc
	if limiter != nil {
		limited = append(limited, middleware.RateLimitMiddleware(limiter))
	}

	interceptors := []gin.HandlerFunc{
		recording.gate(middleware.PageViewMiddleware(enricher)),
		recording.gate(middleware.DownloadMiddleware(enricher)),
	}

	// Pre-login pages (login, password reset) report through here; a valid token still
	// attributes the record to its user.
	public := router.Group("/api/v1/public")
	public.Use(interceptors...)
	public.Use(middleware.OptionalAuthMiddleware())
	if cfg.Audit.PublicEvents {
		public.POST("/activity", append(limited, activityHandlers.RecordHandler())...)
	}

	apiV1 := router.Group("/api/v1")
	apiV1.Use(interceptors...)
	apiV1.Use(middleware.AuthMiddleware())
	{
		record := append([]gin.HandlerFunc{middleware.RequireScope(auth.ScopeActivityWrite)}, limited...)
		apiV1.POST("/activity", append(record, activityHandlers.RecordHandler())...)

		apiV1.GET("/activity/stats",
			middleware.RequireAnyScope(auth.ScopeActivityRead, auth.ScopeActivityWrite),
			activityHandlers.StatsHandler())

		reads := apiV1.Group("/activity")
		reads.Use(middleware.RequireScope(auth.ScopeActivityRead))
		{
			reads.GET("", activityHandlers.ListHandler())
			reads.GET("/:id", activityHandlers.GetHandler())
			reads.GET("/export", activityHandlers.ExportHandler())
			reads.POST("/exports", activityHandlers.CreateArchiveHandler())
			reads.GET("/exports", activityHandlers.ListArchivesHandler())
			reads.GET("/exports/*path", activityHandlers.DownloadArchiveHandler())
		}

		catalogGroup := apiV1.Group("")
		catalogGroup.Use(middleware.RequireScope(auth.ScopeCatalogWrite))
		catalog.NewHandlers(db, bus).RegisterRoutes(catalogGroup)
	}

	return router, bg, nil
}

// NewActivityWriter builds the write path configured under audit: the store, the
// shippers behind it and, when audit.async is enabled, the bounded queue in front.
func NewActivityWriter(cfg *config.AuditConfig, store audit.Store) (audit.Writer, error) {
	shippers, err := audit.NewMultiShipper(cfg.Shippers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize activity shippers: %w", err)
	}

	var shipper audit.Shipper
	if shippers.Len() > 0 {
		shipper = shippers
		slog.Info("activity shippers enabled", "count", shippers.Len())
	}

	var writer audit.Writer = audit.NewStoreWriter(store, shipper)
	if cfg.Async.Enabled {
		writer = audit.NewAsyncWriter(writer, cfg.Async.QueueSize, cfg.Async.Workers, cfg.Async.WriteTimeout)
	}
	return writer, nil
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and the export storage backend.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
func readinessHandler(db *sqlx.DB, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if store == nil {
			checks["storage"] = "disabled"
		} else {
			// The probe key never exists; ErrNotFound proves the backend answered.
			_, err := store.Stat(c.Request.Context(), readinessProbeKey)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				checks["storage"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "storage backend not ready",
				})
				return
			}
			checks["storage"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware writes one structured access log record per request
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logRequest(c, time.Since(start), path, query)
	}
}

// logRequest emits the access record. The handler installed by telemetry.SetupLogger
// decides between JSON and text output.
func logRequest(c *gin.Context, latency time.Duration, path, query string) {
	level := slog.LevelInfo
	if c.Writer.Status() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.LogAttrs(
		c.Request.Context(),
		level,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", middleware.RequestID(c)),
		slog.String("user_id", c.GetString(middleware.UserIDKey)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
	if methods == "" {
		methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	allowHeaders := strings.Join([]string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.RequestedWithHeader, middleware.AppStateHeader, middleware.PWAHeader, middleware.RequestIDHeader,
	}, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Checksum-SHA256, X-RateLimit-Remaining, "+middleware.RequestIDHeader)
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
