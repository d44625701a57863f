package usecase

import (
	"context"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/logger"
)

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	push             PushSender
}

// NewNotificationUseCase creates the inbox service; push may be nil to
// disable device delivery.
func NewNotificationUseCase(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	push PushSender,
) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		push:             push,
	}
}

// Enqueue stores the notification and, when the user registered a push
// token, sends it to the device. Push failures are only logged.
func (uc *NotificationUseCase) Enqueue(ctx context.Context, userID string, notification *entity.Notification) error {
	if err := uc.notificationRepo.Create(ctx, userID, notification); err != nil {
		return err
	}
	if uc.push == nil {
		return nil
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil || user.PushToken == "" {
		return nil
	}
	data := map[string]string{
		"notificationId": notification.ID,
		"kind":           string(notification.Kind),
	}
	if notification.ActivityID != "" {
		data["activityId"] = notification.ActivityID
	}
	if err := uc.push.Send(ctx, user.PushToken, notification.Title, notification.Message, data); err != nil {
		logger.WithFields(logger.Fields{"userId": userID, "notificationId": notification.ID}).WithError(err).Warn("push delivery failed")
	}
	return nil
}

func (uc *NotificationUseCase) List(ctx context.Context, userID string) ([]*entity.Notification, error) {
	return uc.notificationRepo.List(ctx, userID)
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	return uc.notificationRepo.MarkRead(ctx, userID, notificationID)
}

func (uc *NotificationUseCase) Delete(ctx context.Context, userID, notificationID string) error {
	return uc.notificationRepo.Delete(ctx, userID, notificationID)
}

// RemoveActivityEndRecords deletes the user's activity-ended and
// review-requested notifications for the activity and returns how many
// were removed.
func (uc *NotificationUseCase) RemoveActivityEndRecords(ctx context.Context, userID, activityID string) (int, error) {
	notifications, err := uc.notificationRepo.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, n := range notifications {
		if n.IsActivityEndRecord(activityID) {
			ids = append(ids, n.ID)
		}
	}
	if err := uc.notificationRepo.DeleteMany(ctx, userID, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
