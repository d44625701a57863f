package handler

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/usecase"
	"meetup/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type updateProfileRequest struct {
	Name       string `json:"name" validate:"omitempty,max=50"`
	Email      string `json:"email" validate:"omitempty,email"`
	ProfileURL string `json:"profileUrl" validate:"omitempty,url"`
	Bio        string `json:"bio" validate:"max=500"`
	PushToken  string `json:"pushToken"`
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	userID := c.Get("uid").(string)

	user, err := h.userUseCase.GetUserProfile(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) UpsertProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	user, err := h.userUseCase.UpsertProfile(c.Request().Context(), userID, usecase.UpdateProfileInput{
		Name:       req.Name,
		Email:      req.Email,
		ProfileURL: req.ProfileURL,
		Bio:        req.Bio,
		PushToken:  req.PushToken,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userUseCase.GetUserProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	// Contact details stay private.
	user.Email = ""
	user.PushToken = ""
	user.FriendRequests = nil
	return response.Success(c, user)
}
