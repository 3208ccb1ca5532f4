// Package logging wraps log/slog with the handler/format selection and
// context-carried fields this system's subsystems share. There is no
// async write buffer, since synchronous slog writes to
// a local file or stderr never block a diff-and-transact path long enough
// to matter here.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format selects the log handler's output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config controls logger construction.
type Config struct {
	// Level is "debug", "info", "warn", or "error". Defaults to "info".
	Level string

	// Format is "json" or "text". Defaults to "json".
	Format string

	// AddSource includes file:line in each record.
	AddSource bool

	// RedactSensitive enables Redactor scrubbing of filesystem paths and
	// IP literals in every record, whatever its level.
	RedactSensitive bool

	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
}

// New builds a slog.Logger from cfg. The returned logger has no
// "component" attribute attached; callers add one with .With("component",
// name) per subsystem.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	if cfg.RedactSensitive {
		w = &redactingWriter{next: w, redactor: NewRedactor()}
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "", "info", "INFO":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

func parseFormat(s string) (Format, error) {
	switch s {
	case "", "json", "JSON":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("logging: unknown format %q", s)
	}
}

type ctxKey struct{}

// IntoContext attaches l to ctx so downstream handlers can recover it
// with FromContext instead of threading a *slog.Logger through every
// call signature.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext recovers the logger attached by IntoContext, or
// slog.Default() if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
