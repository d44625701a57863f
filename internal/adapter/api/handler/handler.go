package handler

import (
	"meetup/internal/usecase"
)

var (
	activityHandler     *ActivityHandler
	chatHandler         *ChatHandler
	reviewHandler       *ReviewHandler
	userHandler         *UserHandler
	friendHandler       *FriendHandler
	notificationHandler *NotificationHandler
)

func Setup(
	activityUseCase *usecase.ActivityUseCase,
	chatUseCase *usecase.ChatUseCase,
	reviewUseCase *usecase.ReviewUseCase,
	userUseCase *usecase.UserUseCase,
	friendUseCase *usecase.FriendUseCase,
	notificationUseCase *usecase.NotificationUseCase,
) {
	activityHandler = NewActivityHandler(activityUseCase)
	chatHandler = NewChatHandler(chatUseCase)
	reviewHandler = NewReviewHandler(reviewUseCase)
	userHandler = NewUserHandler(userUseCase)
	friendHandler = NewFriendHandler(friendUseCase)
	notificationHandler = NewNotificationHandler(notificationUseCase)
}

func GetActivityHandler() *ActivityHandler {
	return activityHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetReviewHandler() *ReviewHandler {
	return reviewHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetFriendHandler() *FriendHandler {
	return friendHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}
