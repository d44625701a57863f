package repository

import (
	"context"
	"time"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
)

type treeUserRepository struct {
	store repository.Store
}

func NewTreeUserRepository(store repository.Store) repository.UserRepository {
	return &treeUserRepository{
		store: store,
	}
}

func (r *treeUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	v, err := r.store.Get(ctx, nodePath(usersRoot, id))
	if err != nil {
		return nil, errors.Internal("Failed to get user", err)
	}
	if v == nil {
		return nil, errors.NotFound("User", nil)
	}

	var user entity.User
	if err := decode(v, &user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = id
	return &user, nil
}

func (r *treeUserRepository) SaveProfile(ctx context.Context, user *entity.User) error {
	updateData := map[string]interface{}{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"profileUrl": user.ProfileURL,
		"bio":        user.Bio,
		"pushToken":  user.PushToken,
		"role":       user.Role,
	}

	// Only include non-empty fields so a partial profile never blanks
	// what is already stored.
	cleanUpdateData := make(map[string]interface{})
	for key, value := range updateData {
		if value == "" {
			continue
		}
		cleanUpdateData[nodePath(usersRoot, user.ID, key)] = value
	}

	existing, err := r.store.Get(ctx, nodePath(usersRoot, user.ID, "createdTimestamp"))
	if err != nil {
		return errors.Internal("Failed to read user", err)
	}
	if existing == nil {
		cleanUpdateData[nodePath(usersRoot, user.ID, "createdTimestamp")] = time.Now().UnixMilli()
	}

	logger.Debug("Saving profile for user %s (%d fields)", user.ID, len(cleanUpdateData))
	if err := r.store.Update(ctx, cleanUpdateData); err != nil {
		return errors.Internal("Failed to update user", err)
	}
	return nil
}

func (r *treeUserRepository) IncrementParticipationCount(ctx context.Context, userID string) (int64, error) {
	committed, err := r.store.Transaction(ctx, nodePath(usersRoot, userID, "participationCount"), func(current interface{}) (interface{}, error) {
		return toInt64(current) + 1, nil
	})
	if err != nil {
		return 0, errors.Internal("Failed to increment participation count", err)
	}
	return toInt64(committed), nil
}

func (r *treeUserRepository) AddFriendRequest(ctx context.Context, targetID, requesterID string) error {
	if err := r.store.Set(ctx, nodePath(usersRoot, targetID, "friendRequests", requesterID), true); err != nil {
		return errors.Internal("Failed to store friend request", err)
	}
	return nil
}

func (r *treeUserRepository) RemoveFriendRequest(ctx context.Context, targetID, requesterID string) error {
	if err := r.store.Remove(ctx, nodePath(usersRoot, targetID, "friendRequests", requesterID)); err != nil {
		return errors.Internal("Failed to remove friend request", err)
	}
	return nil
}

func (r *treeUserRepository) AcceptFriendRequest(ctx context.Context, userID, requesterID string) error {
	err := r.store.Update(ctx, map[string]interface{}{
		nodePath(usersRoot, userID, "friends", requesterID):        true,
		nodePath(usersRoot, requesterID, "friends", userID):        true,
		nodePath(usersRoot, userID, "friendRequests", requesterID): nil,
	})
	if err != nil {
		return errors.Internal("Failed to accept friend request", err)
	}
	return nil
}

func (r *treeUserRepository) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	err := r.store.Update(ctx, map[string]interface{}{
		nodePath(usersRoot, userID, "friends", friendID): nil,
		nodePath(usersRoot, friendID, "friends", userID): nil,
	})
	if err != nil {
		return errors.Internal("Failed to remove friend", err)
	}
	return nil
}
