package repository

import (
	"context"

	"meetup/internal/domain/entity"
)

type ChatRepository interface {
	Create(ctx context.Context, room *entity.ChatRoom) error
	GetByID(ctx context.Context, id string) (*entity.ChatRoom, error)
	FindByActivityID(ctx context.Context, activityID string) ([]*entity.ChatRoom, error)
	List(ctx context.Context) ([]*entity.ChatRoom, error)
	// Delete removes the room and its message subtree in one write.
	Delete(ctx context.Context, id string) error

	// Members
	SetMember(ctx context.Context, roomID, userID string, member entity.ChatMember) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	GetMembers(ctx context.Context, roomID string) (map[string]entity.ChatMember, error)
	SetUnreadCounts(ctx context.Context, roomID string, counts map[string]int) error

	// Messages
	CreateMessage(ctx context.Context, message *entity.ChatMessage) error
	GetMessages(ctx context.Context, roomID string) ([]*entity.ChatMessage, error)
	UpdateLastMessage(ctx context.Context, roomID, text string, timestamp int64) error
}
