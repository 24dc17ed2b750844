package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Span times one logical operation: a CLI command, an API call, an upload.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time

	mu    sync.Mutex
	attrs []any
}

// StartSpan opens a span under the one carried by ctx, starting a new trace
// when there is none. The returned context logs with trace_id and span_id.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)
	if TraceIDFromContext(ctx) == "" {
		traceID := uuid.NewString()
		ctx = with(ctx, traceIDKey, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	fields := []any{slog.String("span_id", spanID), slog.String("span_name", name)}
	if parent := SpanIDFromContext(ctx); parent != "" {
		fields = append(fields, slog.String("parent_span_id", parent))
	}
	logger = logger.With(fields...)

	ctx = with(ctx, spanIDKey, spanID)
	ctx = WithLogger(ctx, logger)
	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// Set records attributes logged when the span ends.
func (s *Span) Set(attrs ...slog.Attr) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attrs {
		s.attrs = append(s.attrs, a)
	}
}

// End logs the span at debug level, or at warn when err is non-nil.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	args := append([]any{slog.Duration("duration", time.Since(s.start))}, s.attrs...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("span failed", append(args, slog.Any("error", err))...)
		return
	}
	s.logger.Debug("span completed", args...)
}
