// Package logger builds per-subsystem slog loggers and carries them on contexts.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Subsystem names a component with its own log level.
type Subsystem string

const (
	SubsystemAPI       Subsystem = "API"
	SubsystemArchive   Subsystem = "ARCHIVE"
	SubsystemLive      Subsystem = "LIVE"
	SubsystemScheduler Subsystem = "SCHEDULER"
	SubsystemCapture   Subsystem = "CAPTURE"
)

// Config holds the default level and per-subsystem overrides.
type Config struct {
	DefaultLevel    slog.Level
	SubsystemLevels map[Subsystem]slog.Level
}

// NewConfig reads LOG_LEVEL and LOG_LEVEL_<SUBSYSTEM> from the environment.
func NewConfig() Config {
	cfg := Config{
		DefaultLevel:    parseLevel(os.Getenv("LOG_LEVEL"), slog.LevelInfo),
		SubsystemLevels: make(map[Subsystem]slog.Level),
	}

	for _, s := range []Subsystem{SubsystemAPI, SubsystemArchive, SubsystemLive, SubsystemScheduler, SubsystemCapture} {
		if v := os.Getenv("LOG_LEVEL_" + string(s)); v != "" {
			cfg.SubsystemLevels[s] = parseLevel(v, cfg.DefaultLevel)
		}
	}

	return cfg
}

// LevelFor returns the effective level for a subsystem.
func (c Config) LevelFor(s Subsystem) slog.Level {
	if lvl, ok := c.SubsystemLevels[s]; ok {
		return lvl
	}
	return c.DefaultLevel
}

func parseLevel(v string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// NewSubsystemLogger creates a JSON logger on stdout for the subsystem.
// When otelHandler is non-nil records are also sent to it.
func NewSubsystemLogger(s Subsystem, cfg Config, otelHandler slog.Handler) *slog.Logger {
	level := cfg.LevelFor(s)
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if otelHandler != nil {
		handler = &fanoutHandler{
			handlers: []slog.Handler{handler, otelHandler},
			level:    level,
		}
	}
	return slog.New(handler).With("subsystem", string(s))
}

type ctxKey struct{}

// AddToContext returns a context carrying the logger.
func AddToContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return slog.Default()
}

// fanoutHandler writes every record to all handlers at or above level.
type fanoutHandler struct {
	handlers []slog.Handler
	level    slog.Level
}

func (h *fanoutHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next, level: h.level}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &fanoutHandler{handlers: next, level: h.level}
}
