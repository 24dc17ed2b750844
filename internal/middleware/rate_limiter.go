package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing calls per key.
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

type hostEntry struct {
	limiter *rate.Limiter
	used    time.Time
}

// hostRateLimiter keeps one token bucket per API host. Buckets idle for
// longer than ttl are dropped on the next call.
type hostRateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	hosts map[string]*hostEntry
}

// NewHostRateLimiter allows perSecond calls per second to each host, with
// the given burst. A non-positive perSecond disables pacing.
func NewHostRateLimiter(perSecond float64, burst int, ttl time.Duration) RateLimiter {
	l := &hostRateLimiter{
		limit: rate.Inf,
		burst: max(burst, 1),
		ttl:   ttl,
		now:   time.Now,
		hosts: make(map[string]*hostEntry),
	}
	if perSecond > 0 {
		l.limit = rate.Limit(perSecond)
	}
	if l.ttl <= 0 {
		l.ttl = 5 * time.Minute
	}
	return l
}

func (l *hostRateLimiter) Wait(ctx context.Context, host string) error {
	return l.bucket(host).Wait(ctx)
}

func (l *hostRateLimiter) bucket(host string) *rate.Limiter {
	if host == "" {
		host = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.hosts {
		if key != host && now.Sub(e.used) > l.ttl {
			delete(l.hosts, key)
		}
	}

	e, ok := l.hosts[host]
	if !ok {
		e = &hostEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.hosts[host] = e
	}
	e.used = now
	return e.limiter
}

// RateLimit delays each request until limiter admits its host.
func RateLimit(limiter RateLimiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if limiter == nil {
			return next
		}
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context(), req.URL.Host); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}
