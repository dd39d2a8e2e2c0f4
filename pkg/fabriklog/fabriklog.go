// Package fabriklog provides the structured logger shared by every fabrik
// package: one slog-backed default logger, configurable by level and
// format, with third-party noise held below debug.
package fabriklog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const fabrikPackagePrefix = "github.com/fabrik-dev/fabrik"

// ParseLevel converts a level string (debug|info|warn|error, case
// insensitive) to a slog.Level. Unknown values fall back to warn so a typo
// in a config file degrades gracefully rather than going silent or erroring.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// fabrikOnlyHandler suppresses log records emitted from outside the fabrik
// module unless the configured level is debug. This keeps routine retry
// chatter from go-plugin/grpc dependencies out of normal operator output
// while still surfacing it when someone is actively debugging.
type fabrikOnlyHandler struct {
	next     slog.Handler
	minLevel slog.Level
}

func (h *fabrikOnlyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.next.Enabled(ctx, level)
}

func (h *fabrikOnlyHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || isFabrikCaller(record.PC) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

func (h *fabrikOnlyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fabrikOnlyHandler{next: h.next.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *fabrikOnlyHandler) WithGroup(name string) slog.Handler {
	return &fabrikOnlyHandler{next: h.next.WithGroup(name), minLevel: h.minLevel}
}

func isFabrikCaller(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), fabrikPackagePrefix) || strings.Contains(file, "/fabrik/")
}

// Init configures the process-wide default logger. format is "simple" (one
// line: LEVEL message key=value...), "json" (slog.JSONHandler), or anything
// else falls back to the standard slog.TextHandler layout.
func Init(level slog.Level, output *os.File, format string) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
				return slog.String(slog.LevelKey, "WARN")
			}
			return a
		},
	}

	var base slog.Handler
	switch format {
	case "json":
		base = slog.NewJSONHandler(output, opts)
	case "simple", "":
		base = &simpleHandler{writer: output}
	default:
		base = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(&fabrikOnlyHandler{next: base, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// simpleHandler renders "LEVEL message key=value ..." with no timestamp,
// intended for interactive CLI use where the operator watches a live run.
type simpleHandler struct {
	writer *os.File
	attrs  []slog.Attr
}

func (h *simpleHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *simpleHandler) Handle(ctx context.Context, record slog.Record) error {
	var b strings.Builder
	level := record.Level.String()
	if level == "WARNING" {
		level = "WARN"
	}
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(record.Message)
	for _, a := range h.attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
	}
	record.Attrs(func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
		return true
	})
	b.WriteString("\n")
	_, err := h.writer.WriteString(b.String())
	return err
}

func (h *simpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &simpleHandler{writer: h.writer, attrs: merged}
}

func (h *simpleHandler) WithGroup(string) slog.Handler { return h }

// Default returns the process-wide logger, initializing it at info/simple
// on first use so packages never need a nil check.
func Default() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}
