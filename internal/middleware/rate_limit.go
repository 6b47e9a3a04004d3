package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
)

type tokenBucket struct {
	tokens int
	last   time.Time
}

// limiter keeps one token bucket per client IP.
type limiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    int
	burst   int
	now     func() time.Time
}

func newLimiter(rps int) *limiter {
	return &limiter{buckets: map[string]*tokenBucket{}, rate: rps, burst: rps, now: time.Now}
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tb, ok := l.buckets[key]
	if !ok {
		tb = &tokenBucket{tokens: l.burst, last: now}
		l.buckets[key] = tb
	}
	elapsed := now.Sub(tb.last).Seconds()
	if elapsed > 0 {
		refill := int(elapsed * float64(l.rate))
		if refill > 0 {
			tb.tokens += refill
			if tb.tokens > l.burst {
				tb.tokens = l.burst
			}
			tb.last = now
		}
	}
	// full buckets carry no state
	if len(l.buckets) > 10000 {
		for k, b := range l.buckets {
			if b.tokens >= l.burst {
				delete(l.buckets, k)
			}
		}
	}
	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(rps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
