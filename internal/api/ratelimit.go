// internal/api/ratelimit.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
)

// rateLimiter throttles public endpoints per client IP using Redis counters.
// A client that exhausts the window is blocked for the configured block
// period. Redis failures fail open: the public form must not go down with
// the cache.
type rateLimiter struct {
	rdb    *redis.Client
	cfg    config.RateLimitConfig
	log    logger.Logger
	prefix string
}

func newRateLimiter(rdb *redis.Client, cfg config.RateLimitConfig, log logger.Logger) *rateLimiter {
	return &rateLimiter{rdb: rdb, cfg: cfg, log: log, prefix: "ratelimit:public"}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled || rl.rdb == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		ctx := r.Context()
		window := time.Duration(rl.cfg.WindowSeconds) * time.Second

		blockKey := fmt.Sprintf("%s:block:%s", rl.prefix, ip)
		blocked, err := rl.rdb.Exists(ctx, blockKey).Result()
		if err != nil {
			rl.log.Warn("rate limiter unavailable, allowing request", map[string]interface{}{
				"error": err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}
		if blocked > 0 {
			ttl, _ := rl.rdb.TTL(ctx, blockKey).Result()
			rl.reject(w, ttl)
			return
		}

		countKey := fmt.Sprintf("%s:count:%s", rl.prefix, ip)
		count, err := rl.rdb.Incr(ctx, countKey).Result()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.rdb.Expire(ctx, countKey, window)
		}

		remaining := int64(rl.cfg.PublicLimit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.PublicLimit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.cfg.PublicLimit) {
			block := time.Duration(rl.cfg.BlockSeconds) * time.Second
			rl.rdb.Set(ctx, blockKey, "1", block)
			rl.reject(w, block)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) reject(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	respondErrorStatus(w, http.StatusTooManyRequests, "Too many requests")
}
