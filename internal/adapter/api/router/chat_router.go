package router

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/adapter/api/handler"
	"meetup/internal/adapter/api/middleware"
	"meetup/internal/infrastructure/ratelimit"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	chatHandler := handler.GetChatHandler()

	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.GET("", chatHandler.ListChatRooms)
	chats.POST("/direct", chatHandler.CreateDirectChat)
	chats.GET("/:id/messages", chatHandler.GetMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	chats.PUT("/:id/read", chatHandler.MarkMessagesAsRead)
}
