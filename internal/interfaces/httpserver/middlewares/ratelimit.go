package middlewares

import (
	"math"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/infrastructure/auth"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

const defaultLimiterCacheSize = 10000

// RateLimiter throttles requests per principal with a token bucket. Buckets
// live in a bounded LRU so idle principals are forgotten.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	buckets *lru.Cache
}

// NewRateLimiter builds a limiter from RATE_LIMIT_* settings. A non-positive
// rate disables limiting.
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	size := cfg.RateLimitCacheSize
	if size <= 0 {
		size = defaultLimiterCacheSize
	}
	buckets, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	limit := rate.Inf
	if cfg.RateLimitPerMinute > 0 {
		limit = rate.Limit(cfg.RateLimitPerMinute / 60)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limit: limit, burst: burst, buckets: buckets}, nil
}

func (r *RateLimiter) bucket(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.buckets.Get(key); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(r.limit, r.burst)
	r.buckets.Add(key, limiter)
	return limiter
}

// Middleware must run after auth so the bucket key is the principal id.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.limit == rate.Inf {
			c.Next()
			return
		}
		reservation := r.bucket(auth.UserID(c)).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			platformerrors.WriteRateLimited(c, "too many requests")
			return
		}
		c.Next()
	}
}
