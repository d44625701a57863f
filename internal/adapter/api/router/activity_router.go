package router

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/adapter/api/handler"
	"meetup/internal/adapter/api/middleware"
	"meetup/internal/infrastructure/ratelimit"
)

func SetupActivityRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	activityHandler := handler.GetActivityHandler()

	activities := e.Group("/v1/activities")
	activities.Use(authMiddleware.Authenticate)

	activities.POST("", activityHandler.CreateActivity, middleware.RateLimit(limiter, ratelimit.ActionCreateActivity))
	activities.GET("", activityHandler.ListActivities)
	activities.GET("/:id", activityHandler.GetActivity)
	activities.PUT("/:id", activityHandler.UpdateActivity)
	activities.DELETE("/:id", activityHandler.DeleteActivity)
	activities.POST("/:id/join", activityHandler.JoinActivity)
	activities.POST("/:id/leave", activityHandler.LeaveActivity)
	activities.DELETE("/:id/participants/:userId", activityHandler.RemoveParticipant)
}
