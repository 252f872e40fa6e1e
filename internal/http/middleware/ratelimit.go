// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the edge token-bucket limiter. It protects the API as
// a whole (polling /scores, opening event streams) and is independent of the
// per-identity submission cooldown enforced by the leaderboard service.
//
// Buckets come from golang.org/x/time/rate and are keyed by identity, or by
// client IP for anonymous requests. Idle buckets are evicted opportunistically.
// The limiter is process local.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to its bucket.
type keyFunc func(*gin.Context) string

// KeyByIdentityOrIP keys authenticated callers by identity and everyone else
// by client IP. The prefixes keep the two namespaces apart.
func KeyByIdentityOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := Identity(c); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per key. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	sweepN  uint64
	now     func() time.Time
}

// NewRateLimiter returns a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByIdentityOrIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// get returns the bucket for key. Every 5000 lookups idle buckets are swept
// before the requested one is refreshed, so a stale bucket can be evicted
// even when it is the one asked for.
func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweepN++
	if rl.sweepN >= 5000 {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.sweepN = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Replays skip it. A rejected request gets 429
// with Retry-After set to the whole seconds until the next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		lim := rl.get(rl.keyFn(c), now)
		r := lim.ReserveN(now, 1)
		if r.OK() {
			delay := r.DelayFrom(now)
			if delay == 0 {
				c.Next()
				return
			}
			r.CancelAt(now)
			c.Header("Retry-After", retryAfterSeconds(delay))
		} else {
			c.Header("Retry-After", "1")
		}

		edgeRejections.WithLabelValues("rate_limited").Inc()
		abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}

// retryAfterSeconds rounds d up to whole seconds, minimum 1.
func retryAfterSeconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// RetryAfterSeconds is the exported form used by handlers for the cooldown
// response.
func RetryAfterSeconds(d time.Duration) string { return retryAfterSeconds(d) }
