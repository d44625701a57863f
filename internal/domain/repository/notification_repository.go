package repository

import (
	"context"

	"meetup/internal/domain/entity"
)

type NotificationRepository interface {
	Create(ctx context.Context, userID string, notification *entity.Notification) error
	List(ctx context.Context, userID string) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteMany(ctx context.Context, userID string, notificationIDs []string) error
}
