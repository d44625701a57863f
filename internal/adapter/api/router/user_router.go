package router

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/adapter/api/handler"
	"meetup/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()
	friendHandler := handler.GetFriendHandler()

	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("/me", userHandler.GetProfile)
	users.POST("/me", userHandler.UpsertProfile)
	users.GET("/:id", userHandler.GetUser)

	friends := e.Group("/v1/friends")
	friends.Use(authMiddleware.Authenticate)

	friends.GET("", friendHandler.ListFriends)
	friends.DELETE("/:userId", friendHandler.RemoveFriend)
	friends.GET("/requests", friendHandler.ListFriendRequests)
	friends.POST("/requests/:userId", friendHandler.SendFriendRequest)
	friends.POST("/requests/:userId/accept", friendHandler.AcceptFriendRequest)
	friends.DELETE("/requests/:userId", friendHandler.DeclineFriendRequest)
}
