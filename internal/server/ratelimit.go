package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	rate       rate.Limit
	burst      int
	idle       time.Duration
	trustProxy bool
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per client
// with the given burst. Idle clients are forgotten by Cleanup.
func NewRateLimiter(perSecond float64, burst int, trustProxy bool) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rate:       rate.Limit(perSecond),
		burst:      burst,
		idle:       10 * time.Minute,
		trustProxy: trustProxy,
	}
}

// Allow reports whether a request from client may proceed now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Cleanup drops clients idle for longer than the idle window and returns how
// many remain.
func (rl *RateLimiter) Cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > rl.idle {
			delete(rl.limiters, client)
		}
	}
	return len(rl.limiters)
}

// Run calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Cleanup(now)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r, rl.trustProxy)) {
			w.Header().Set("Retry-After", "1")
			WriteJSON(w, http.StatusTooManyRequests, errorBody("rate_limited", "too many requests, try again shortly"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address. Proxy headers are only honored when
// trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
