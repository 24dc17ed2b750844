// Package logging carries a slog logger, request ids and span ids on the
// context so every layer logs with the same correlation fields.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	traceIDKey
	spanIDKey
)

// New builds the process logger. Output goes to w (stderr for the CLI) so it
// never mixes with rendered views on stdout.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a config string to a slog level. Anything unrecognised is
// warn, which keeps routine request logs off the terminal.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelWarn
	}
	return l
}

// WithLogger stores logger on ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return with(ctx, loggerKey, logger)
}

// FromContext returns the context logger or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger := get[*slog.Logger](ctx, loggerKey); logger != nil {
		return logger
	}
	return slog.Default()
}

// WithRequestID stores the identifier sent as X-Request-ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return with(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the last request id stored on ctx.
func RequestIDFromContext(ctx context.Context) string {
	return get[string](ctx, requestIDKey)
}

// TraceIDFromContext returns the id shared by every span of one command.
func TraceIDFromContext(ctx context.Context) string {
	return get[string](ctx, traceIDKey)
}

// SpanIDFromContext returns the innermost span id.
func SpanIDFromContext(ctx context.Context) string {
	return get[string](ctx, spanIDKey)
}

func with[T any](ctx context.Context, key ctxKey, value T) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func get[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}
