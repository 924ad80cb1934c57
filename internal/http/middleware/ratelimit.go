package middleware

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// localLimiter is the in-process fallback used when Redis is not configured.
// Token bucket per identifier, refilled at maxRequests per window.
type localLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *xsync.Map[string, *rate.Limiter]
}

func newLocalLimiter(maxRequests int, window time.Duration) *localLimiter {
	return &localLimiter{
		limit:   rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:   maxRequests,
		buckets: xsync.NewMap[string, *rate.Limiter](),
	}
}

func (l *localLimiter) Allow(key string) bool {
	lim, _ := l.buckets.LoadOrCompute(key, func() (*rate.Limiter, bool) {
		return rate.NewLimiter(l.limit, l.burst), false
	})
	return lim.Allow()
}
