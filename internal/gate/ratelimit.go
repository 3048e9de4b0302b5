package gate

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per (userID, resource) pair. Counters are
// shared mutable state; all access is serialized on the internal mutex. Stale
// entries are cleaned up every 10 minutes.
type RateLimiter struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
}

func NewRateLimiter(ctx context.Context, requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		rps:      requestsPerSecond,
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
	}

	// Background cleanup of stale limiters.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.mu.Lock()
				cutoff := time.Now().Add(-30 * time.Minute)
				for key, e := range rl.limiters {
					if e.lastAccess.Before(cutoff) {
						delete(rl.limiters, key)
					}
				}
				rl.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return rl
}

// Check consumes one token from the caller's bucket for the resource. The
// Remaining hint is the floor of tokens left after this call.
func (rl *RateLimiter) Check(userID int64, resource string) Decision {
	key := strconv.FormatInt(userID, 10) + ":" + resource

	rl.mu.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		}
		rl.limiters[key] = e
	}
	e.lastAccess = time.Now()
	rl.mu.Unlock()

	allowed := e.limiter.Allow()
	remaining := int(e.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	return Decision{Allowed: allowed, Remaining: remaining}
}

// ActiveKeys reports how many (user, resource) buckets are live.
func (rl *RateLimiter) ActiveKeys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
