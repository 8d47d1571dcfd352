package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
)

// ServiceName is attached to every record.
const ServiceName = "graylogic-facility"

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Logger is a *slog.Logger carrying the service and version attributes.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New writes to stderr when cfg.Output is "stderr" and stdout otherwise.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter writes to w regardless of cfg.Output. Format "text"
// selects the text handler; anything else is JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)}
}

// parseLevel falls back to info for unknown names.
func parseLevel(name string) slog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// With returns a child Logger with extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component tags a child logger with component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Site tags a child logger with the site and manifest date being handled.
func (l *Logger) Site(siteID, date string) *Logger {
	return l.With("site_id", siteID, "date", date)
}

// Default is the JSON/info logger used until config is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}
