package repository

import (
	"context"

	"meetup/internal/domain/entity"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	GetByID(ctx context.Context, id string) (*entity.Activity, error)
	List(ctx context.Context) ([]*entity.Activity, error)
	// Patch applies field -> value as one atomic multi-path write.
	Patch(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error

	// Participants
	AddParticipant(ctx context.Context, activityID, userID, userName string) (bool, error)
	RemoveParticipant(ctx context.Context, activityID, userID string) (bool, error)
	GetParticipants(ctx context.Context, activityID string) (map[string]string, error)
	AdjustParticipantCount(ctx context.Context, activityID string, delta int) (int, error)

	// Per-user index under userActivities/{userId}
	AddToUserIndex(ctx context.Context, userID, activityID string) error
	RemoveFromUserIndex(ctx context.Context, userID, activityID string) error
	ListUserActivityIDs(ctx context.Context, userID string) ([]string, error)
}
