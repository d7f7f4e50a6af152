// @title           Portal Activity API
// @version         0.1.0
// @description     User activity audit trail for the sales portal: enriched activity records, reporting queries, CSV exports and the sales catalog endpoints whose changes feed the trail.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                        Authorization
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a dedicated side-channel port (default: 9090), separate from the API listener. Configure it with PORTAL_TELEMETRY_METRICS_PROMETHEUS_PORT.

// Package main is the entry point for the portal activity server binary.
// It dispatches three subcommands (serve, migrate and version) via a switch on
// os.Args. The serve command applies pending migrations on startup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Rodrigo270695/portalAD-sub001/internal/api"
	"github.com/Rodrigo270695/portalAD-sub001/internal/auth"
	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db"
	"github.com/Rodrigo270695/portalAD-sub001/internal/safego"
	"github.com/Rodrigo270695/portalAD-sub001/internal/session"
	"github.com/Rodrigo270695/portalAD-sub001/internal/telemetry"

	// Import storage backends to register them
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/azure"
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/gcs"
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/local"
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")

	switch command {
	case "serve":
		watcher, err := config.LoadWatched(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return serve(watcher)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("portal activity server v%s\n", api.Version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(watcher *config.Watcher) error {
	cfg := watcher.Config()

	// Initialise the structured logger first so everything below uses the configured format.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	watcher.OnChange(func(old, updated *config.Config) {
		if old.Logging.Level != updated.Logging.Level {
			telemetry.SetLogLevel(updated.Logging.Level)
			slog.Info("log level changed", "level", updated.Logging.Level)
		}
	})
	watcher.Start()

	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	slog.Info("connecting to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port,
		"name", cfg.Database.Name, "user", cfg.Database.User, "sslmode", cfg.Database.SSLMode)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	telemetry.StartDBStatsCollector(database.DB)

	slog.Info("running database migrations")
	if err := db.RunMigrations(database.DB, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	var redis *goredis.Client
	if cfg.Redis.Enabled {
		redis, err = session.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redis.Close()
		slog.Info("connected to redis", "addr", cfg.Redis.Addr())
	} else {
		slog.Warn("redis disabled: session duration is not tracked and rate limits are per instance")
	}

	// Prometheus metrics live on their own port so they are not reachable through the
	// public ingress path.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go("metrics-server", func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	router, bgServices, err := api.NewRouter(cfg, database, redis)
	if err != nil {
		return err
	}
	watcher.OnChange(func(old, updated *config.Config) {
		if old.Audit.Enabled != updated.Audit.Enabled {
			bgServices.SetAuditEnabled(updated.Audit.Enabled)
		}
	})

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	safego.Go("http-server", func() {
		slog.Info("starting server",
			"addr", cfg.Server.GetAddress(),
			"storage_backend", cfg.Storage.DefaultBackend,
			"audit_enabled", cfg.Audit.Enabled,
			"async_writes", cfg.Audit.Async.Enabled)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		bgServices.Shutdown()
		return fmt.Errorf("failed to start server: %w", err)
	}

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Flush queued activity records after in-flight requests have finished.
	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}
