package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"meetup/internal/infrastructure/ratelimit"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
	"meetup/pkg/response"
)

// RateLimit limits an authenticated action per user; it must run after
// Authenticate. Unauthenticated requests are keyed by IP.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				logger.WithFields(logger.Fields{"key": key, "action": action, "retryAfter": wait.String()}).Warn("rate limit exceeded")
				c.Response().Header().Set("Retry-After", retryAfter(wait))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}

func retryAfter(wait time.Duration) string {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
