package router

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/adapter/api/middleware"
	"meetup/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	SetupActivityRouter(e, authMiddleware, limiter)
	SetupChatRouter(e, authMiddleware, limiter)
	SetupReviewRouter(e, authMiddleware)
	SetupUserRouter(e, authMiddleware)
	SetupNotificationRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
