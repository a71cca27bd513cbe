package main

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-client sliding window.
type RateLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.validLocked(key, now)

	if len(valid) >= rl.maxRequests {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func (rl *RateLimiter) validLocked(key string, now time.Time) []time.Time {
	timestamps := rl.requests[key]
	windowStart := now.Add(-rl.window)

	first := sort.Search(len(timestamps), func(i int) bool {
		return timestamps[i].After(windowStart)
	})
	return timestamps[first:]
}

// Prune forgets clients with no request inside the window.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key := range rl.requests {
		if len(rl.validLocked(key, now)) == 0 {
			delete(rl.requests, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) RunPruner(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}

func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"statusCode": http.StatusTooManyRequests,
				"data":       nil,
				"message":    "too many requests",
				"success":    false,
			})
			return
		}

		c.Next()
	}
}
