package middleware

import (
	"PupilMeter/pkg/response"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
	"net/http"
	"sync"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

type rateLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mutex     *sync.RWMutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      reqRate,
		burstSize: burstSize,
		mutex:     &sync.RWMutex{},
	}
}

func (r *rateLimiter) GetLimiterFrom(key string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exist := r.bucket[key]; !exist {
		r.bucket[key] = rate.NewLimiter(r.rate, r.burstSize)
	}

	return r.bucket[key]
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	return m.limit(ctx, m.rateLimitter, ctx.IP())
}

// NewFrameRateLimiter buckets by client and session so one client streaming
// two sessions does not starve either of them.
func (m *middleware) NewFrameRateLimiter(ctx *fiber.Ctx) error {
	return m.limit(ctx, m.frameLimitter, ctx.IP()+"|"+ctx.Params("id"))
}

func (m *middleware) limit(ctx *fiber.Ctx, limiter *rateLimiter, key string) error {
	if !limiter.GetLimiterFrom(key).Allow() {
		m.log.Warnf("too many requests for %s on %s", key, ctx.Path())
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Too many requests",
			"code":  "RATE_LIMITED",
		})
	}

	return ctx.Next()
}
