package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// logLevel backs the default logger's level so it can change at runtime
// (config reloads) without rebuilding the handler.
var logLevel = new(slog.LevelVar)

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" (case-insensitive)
// to a slog.Level. Anything else is treated as info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger configures the global slog default logger from the format and level
// strings in application configuration.
//
// format: "json"  → JSONHandler (machine readable; recommended for production)
//
//	anything else → TextHandler (human readable; suitable for local development)
//
// The configured logger is installed as the default so slog.Info/Warn/Error calls
// elsewhere in the service use it without carrying a *slog.Logger around.
func SetupLogger(format, level string) {
	setupLogger(os.Stdout, format, level)
}

// SetupLoggerTo is SetupLogger writing to w. auditctl logs to stderr so stdout stays
// free for exported data.
func SetupLoggerTo(w io.Writer, format, level string) {
	setupLogger(w, format, level)
}

func setupLogger(w io.Writer, format, level string) {
	lvl := ParseLevel(level)
	logLevel.Set(lvl)

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}

// SetLogLevel changes the level of the default logger in place.
func SetLogLevel(level string) {
	lvl := ParseLevel(level)
	if logLevel.Level() == lvl {
		return
	}
	logLevel.Set(lvl)
	slog.Info("log level changed", "level", lvl.String())
}

// LogLevel returns the level currently applied to the default logger.
func LogLevel() slog.Level {
	return logLevel.Level()
}
