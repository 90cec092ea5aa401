// Per-client rate limiting for model creation. Each client IP gets a fixed
// number of requests per window.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks request counts per client IP with a fixed window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxRate int           // max requests per window
	window  time.Duration // time window
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a rate limiter allowing maxRate requests per window.
// Stale entries are swept until Close is called.
func NewRateLimiter(maxRate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		maxRate: maxRate,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(max(window, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stop:
				return
			}
		}
	}()
	return rl
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// Allow reports whether ip is within its limit, consuming one request.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok || now.Sub(b.lastReset) >= rl.window {
		rl.buckets[ip] = &bucket{tokens: rl.maxRate - 1, lastReset: now}
		return rl.maxRate > 0
	}
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter returns how many seconds until the window resets for ip.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		return 0
	}
	remaining := rl.window - rl.now().Sub(b.lastReset)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastReset) > 2*rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address
// without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware wraps a handler with rate limiting. Returns 429 if exceeded.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next(w, r)
	}
}
