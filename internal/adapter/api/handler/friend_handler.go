package handler

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/usecase"
	"meetup/pkg/response"
)

type FriendHandler struct {
	friendUseCase *usecase.FriendUseCase
}

func NewFriendHandler(friendUseCase *usecase.FriendUseCase) *FriendHandler {
	return &FriendHandler{
		friendUseCase: friendUseCase,
	}
}

func (h *FriendHandler) ListFriends(c echo.Context) error {
	userID := c.Get("uid").(string)

	friends, err := h.friendUseCase.ListFriends(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, friends)
}

func (h *FriendHandler) ListFriendRequests(c echo.Context) error {
	userID := c.Get("uid").(string)

	requests, err := h.friendUseCase.ListFriendRequests(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, requests)
}

func (h *FriendHandler) SendFriendRequest(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.friendUseCase.SendFriendRequest(c.Request().Context(), userID, c.Param("userId")); err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, map[string]string{
		"message": "Friend request sent",
	})
}

func (h *FriendHandler) AcceptFriendRequest(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.friendUseCase.AcceptFriendRequest(c.Request().Context(), userID, c.Param("userId")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Friend request accepted",
	})
}

func (h *FriendHandler) DeclineFriendRequest(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.friendUseCase.DeclineFriendRequest(c.Request().Context(), userID, c.Param("userId")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Friend request declined",
	})
}

func (h *FriendHandler) RemoveFriend(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.friendUseCase.RemoveFriend(c.Request().Context(), userID, c.Param("userId")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Friend removed",
	})
}
