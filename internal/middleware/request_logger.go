// Package middleware decorates the outgoing HTTP transport.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vidfriends/vidclient/internal/logging"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps a transport.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain applies mws to base so that the first middleware sees the request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// RequestLogger logs every call at debug level with the logger carried by
// the request context.
func RequestLogger() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			reqLogger := logging.FromContext(req.Context()).With(
				slog.String("request_id", req.Header.Get("X-Request-ID")),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
			)

			resp, err := next.RoundTrip(req)
			if err != nil {
				reqLogger.Debug("request failed",
					slog.Any("error", err),
					slog.Duration("duration", time.Since(start)),
				)
				return nil, err
			}

			reqLogger.Debug("request completed",
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", time.Since(start)),
			)
			return resp, nil
		})
	}
}
