package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
)

type treeNotificationRepository struct {
	store repository.Store
}

func NewTreeNotificationRepository(store repository.Store) repository.NotificationRepository {
	return &treeNotificationRepository{
		store: store,
	}
}

func (r *treeNotificationRepository) Create(ctx context.Context, userID string, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.Timestamp == 0 {
		notification.Timestamp = time.Now().UnixMilli()
	}

	if err := r.store.Set(ctx, nodePath(userNotificationsRoot, userID, notification.ID), notification); err != nil {
		return errors.Internal("Failed to create notification", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (r *treeNotificationRepository) List(ctx context.Context, userID string) ([]*entity.Notification, error) {
	v, err := r.store.Get(ctx, nodePath(userNotificationsRoot, userID))
	if err != nil {
		return nil, errors.Internal("Failed to fetch notifications", err)
	}
	notifications := decodeChildren[entity.Notification](v)
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].Timestamp > notifications[j].Timestamp
	})
	return notifications, nil
}

func (r *treeNotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	path := nodePath(userNotificationsRoot, userID, notificationID)
	v, err := r.store.Get(ctx, path)
	if err != nil {
		return errors.Internal("Failed to get notification", err)
	}
	if v == nil {
		return errors.NotFound("Notification", nil)
	}

	if err := r.store.Set(ctx, nodePath(path, "isRead"), true); err != nil {
		return errors.Internal("Failed to mark notification read", err)
	}
	return nil
}

func (r *treeNotificationRepository) Delete(ctx context.Context, userID, notificationID string) error {
	if err := r.store.Remove(ctx, nodePath(userNotificationsRoot, userID, notificationID)); err != nil {
		return errors.Internal("Failed to delete notification", err)
	}
	return nil
}

func (r *treeNotificationRepository) DeleteMany(ctx context.Context, userID string, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(notificationIDs))
	for _, id := range notificationIDs {
		values[nodePath(userNotificationsRoot, userID, id)] = nil
	}
	if err := r.store.Update(ctx, values); err != nil {
		return errors.Internal("Failed to delete notifications", err)
	}
	return nil
}
