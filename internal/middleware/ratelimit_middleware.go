package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"upload-relay/internal/redis"
	"upload-relay/internal/transport/httpdto"
	relay_errors "upload-relay/pkg/errors"
	"upload-relay/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// UploadLimiter decides whether a client IP may start another upload.
type UploadLimiter interface {
	AllowUpload(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// UploadRateLimitMiddleware applies limiter to upload POSTs. Other methods
// (preflights, route config reads) pass through. A limiter failure lets the
// request through and is logged.
func UploadRateLimitMiddleware(limiter UploadLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		result, err := limiter.AllowUpload(c.Request.Context(), c.ClientIP())
		if err != nil {
			log := l
			if log == nil {
				log = logger.GetGlobalLogger()
			}
			log.Ctx(c.Request.Context()).Warnf("rate limit check failed, allowing request: %v", err)
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			status, body := httpdto.FromError(relay_errors.RateLimited("Upload rate limit exceeded"))
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}

// LocalRateLimiter is an in-process token bucket per IP, used when Redis is
// not configured. Limits are per instance.
type LocalRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

// NewLocalRateLimiter allows limit uploads per window with a burst of limit.
func NewLocalRateLimiter(limit int, window time.Duration) *LocalRateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LocalRateLimiter{
		rate:  rate.Limit(float64(limit) / window.Seconds()),
		burst: limit,
	}
}

func (l *LocalRateLimiter) getLimiter(ip string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(ip, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter)
}

func (l *LocalRateLimiter) AllowUpload(_ context.Context, ip string) (*redis.RateLimitResult, error) {
	limiter := l.getLimiter(ip)
	allowed := limiter.Allow()

	tokens := limiter.Tokens()
	remaining := int(math.Max(0, math.Floor(tokens)))
	var resetIn time.Duration
	if tokens < 1 {
		resetIn = time.Duration((1 - tokens) / float64(l.rate) * float64(time.Second))
	}

	return &redis.RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   resetIn,
		Limit:     l.burst,
	}, nil
}
