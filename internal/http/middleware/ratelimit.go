// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the per-member rate limiter for the check-in API: an
// in-memory token-bucket map keyed by user identity with IP fallback. Writes
// (check-in creation, validation, gym registration) drain more tokens than
// reads, so a member hammering POST /gyms/:gymId/check-ins is throttled well
// before search or history traffic is.
//
// The limiter is process-local. Behind more than one replica a shared store
// would be needed to enforce a global budget; for this service's single
// SQLite-backed process that trade-off is fine.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Token cost per request class. Burst sizes below writeCost are raised to it,
// otherwise a write could never pass the bucket at all.
const (
	readCost  = 1
	writeCost = 2
)

// Bucket housekeeping: entries idle longer than bucketIdleTTL are dropped
// during a sweep that runs every gcEvery lookups.
const (
	bucketIdleTTL = 15 * time.Minute
	gcEvery       = 4096
)

// keyFunc maps a request to the identity string owning its token bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by member identity with an IP fallback.
//
// The limiter runs before any handler, so the "userID" context value is only
// present when an upstream auth middleware set it; the demo X-User-ID header
// is checked next, and the client IP last. Prefixes keep the three
// namespaces from colliding.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		if h := c.GetHeader("X-User-ID"); h != "" {
			return "user:" + h
		}
		return "ip:" + c.ClientIP()
	}
}

// bucket pairs a limiter with its last activity for idle eviction.
type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter owns the per-identity buckets. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	buckets  map[string]*bucket
	idleTTL  time.Duration
	sweepCnt uint64
}

// NewRateLimiter builds a limiter replenishing rps tokens per second with
// the given burst capacity, keyed by keyFn. Burst is coerced up to writeCost
// so write requests remain admissible.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst < writeCost {
		burst = writeCost
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		idleTTL: bucketIdleTTL,
	}
}

// bucketFor returns the limiter for key, creating it on first sight. The
// idle sweep runs before the lookup so a stale bucket for this very key is
// evicted rather than refreshed.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweepCnt++
	if rl.sweepCnt >= gcEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.sweepCnt = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{lim: lim, lastSeen: now}
	return lim
}

// requestCost prices a request by method: state-changing verbs cost
// writeCost tokens, everything else readCost.
func requestCost(method string) int {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return writeCost
	default:
		return readCost
	}
}

// IsRateBypass reports whether IdempotencyValidator flagged this request as
// a replay of an already-completed operation; replays are served without
// consuming tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the enforcing middleware. Over-budget requests receive a
// 429 with the standard error envelope and a Retry-After hint.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucketFor(rl.keyFn(c))
		if lim.AllowN(time.Now(), requestCost(c.Request.Method)) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
