package router

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/adapter/api/handler"
	"meetup/internal/adapter/api/middleware"
)

func SetupReviewRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	reviewHandler := handler.GetReviewHandler()

	authenticated := e.Group("/v1")
	authenticated.Use(authMiddleware.Authenticate)

	authenticated.GET("/reviews/pending", reviewHandler.ListPendingReviews)
	authenticated.POST("/reviews/pending/:pendingId", reviewHandler.SubmitReview)
	authenticated.GET("/users/:id/reviews", reviewHandler.ListUserReviews)
}
