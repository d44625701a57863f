package handler

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/domain/entity"
	"meetup/internal/usecase"
	"meetup/pkg/response"
	"meetup/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

func (h *ChatHandler) ListChatRooms(c echo.Context) error {
	userID := c.Get("uid").(string)

	rooms, err := h.chatUseCase.ListRooms(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, rooms)
}

type createDirectChatRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (h *ChatHandler) CreateDirectChat(c echo.Context) error {
	var req createDirectChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	room, err := h.chatUseCase.CreateDirectChat(c.Request().Context(), userID, req.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, room)
}

// GetMessages returns the room's messages oldest first, paginated.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID := c.Get("uid").(string)

	messages, err := h.chatUseCase.GetMessages(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	p := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(messages, p), int64(len(messages)), p.Page, p.PageSize)
}

type sendMessageRequest struct {
	Message     string `json:"message" validate:"required,max=4000"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=TEXT IMAGE DOCUMENT"`
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendUserMessage(c.Request().Context(), c.Param("id"), userID, usecase.SendMessageInput{
		Message:     req.Message,
		MessageType: entity.MessageType(req.MessageType),
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}

func (h *ChatHandler) MarkMessagesAsRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkRead(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Messages marked as read",
	})
}
