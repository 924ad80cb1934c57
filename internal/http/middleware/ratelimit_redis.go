package middleware

import (
	"net/http"
	"strconv"
	"time"

	"hardmine/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RateLimiter implements fixed-window limits with Redis INCR/EXPIRE so they
// hold across instances. Without Redis it falls back to an in-process token
// bucket; on Redis errors it fails open.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// ByIP limits requests per client IP.
// key format: rl:<scope>:<window_seconds>:<ip>
func (l *RateLimiter) ByIP(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return l.limit(scope, maxRequests, window, func(c *gin.Context) (string, bool) {
		return c.ClientIP(), true
	})
}

// ByUser limits requests per authenticated user. Requires JWT to run first.
func (l *RateLimiter) ByUser(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return l.limit(scope, maxRequests, window, func(c *gin.Context) (string, bool) {
		userID, ok := c.Get(ContextUserID)
		if !ok {
			return "", false
		}
		id, ok := userID.(int64)
		return strconv.FormatInt(id, 10), ok
	})
}

func (l *RateLimiter) limit(scope string, maxRequests int, window time.Duration, ident func(*gin.Context) (string, bool)) gin.HandlerFunc {
	local := newLocalLimiter(maxRequests, window)
	prefix := "rl:" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":"

	return func(c *gin.Context) {
		id, ok := ident(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		endpoint := scope + ":" + c.FullPath()

		if l.rdb == nil {
			if !local.Allow(id) {
				RLBlocked.WithLabelValues(endpoint).Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}
			RLRequests.WithLabelValues(endpoint).Inc()
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := prefix + id
		val, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			// on Redis error, fail-open (allow) but set header
			logger.WithContext(ctx).Warn("rate limiter redis error", "error", err)
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			// first increment, set expiry
			l.rdb.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}
