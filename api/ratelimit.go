package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default rate limit for mutating requests, per client IP
const (
	DefaultRateLimit = 20
	DefaultRateBurst = 40
)

// RateLimiter hands out one token bucket per client IP
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per IP with the given burst
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Allow reports whether a request from ip may proceed
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.get(ip).Allow()
}

// Prune forgets clients not seen since the cutoff and returns how many were dropped
func (rl *RateLimiter) Prune(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	pruned := 0
	for ip, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
			pruned++
		}
	}
	return pruned
}

// Middleware rejects mutating requests over the limit with 429. Reads pass through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.Allow(clientIP(r)) {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
