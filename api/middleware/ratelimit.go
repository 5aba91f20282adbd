package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = time.Hour
	limiterSweepGap = 5 * time.Minute
)

// buckets holds one token bucket per caller identity.
type buckets struct {
	limit rate.Limit
	burst int

	mu   sync.Mutex
	byID map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func newBuckets(cfg config.RateLimitConfig) *buckets {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &buckets{limit: limit, burst: max(cfg.Burst, 1), byID: make(map[string]*bucket)}
}

func (b *buckets) get(id string, now time.Time) *bucket {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.byID[id]
	if !ok {
		bk = &bucket{Limiter: rate.NewLimiter(b.limit, b.burst)}
		b.byID[id] = bk
	}
	bk.lastSeen = now
	return bk
}

func (b *buckets) sweep(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL)
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, bk := range b.byID {
		if bk.lastSeen.Before(cutoff) {
			delete(b.byID, id)
		}
	}
}

// RateLimit returns per-identity (API key or client IP) token-bucket rate
// limiting. Rejected requests get a Retry-After header. Idle buckets are
// evicted until ctx is done.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	b := newBuckets(cfg)

	go func() {
		ticker := time.NewTicker(limiterSweepGap)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				b.sweep(now)
			}
		}
	}()

	return func(c *gin.Context) {
		identity := c.GetString(identityKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		now := time.Now()
		r := b.get(identity, now).ReserveN(now, 1)
		if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
			r.CancelAt(now)
			if r.OK() {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
