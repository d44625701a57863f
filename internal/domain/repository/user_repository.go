package repository

import (
	"context"

	"meetup/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// SaveProfile merges the profile fields without touching counters,
	// friends or reviews.
	SaveProfile(ctx context.Context, user *entity.User) error
	IncrementParticipationCount(ctx context.Context, userID string) (int64, error)

	// Friends
	AddFriendRequest(ctx context.Context, targetID, requesterID string) error
	RemoveFriendRequest(ctx context.Context, targetID, requesterID string) error
	// AcceptFriendRequest writes both friend entries and clears the request in one update.
	AcceptFriendRequest(ctx context.Context, userID, requesterID string) error
	RemoveFriendship(ctx context.Context, userID, friendID string) error
}
